package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-examgen-be/internal/dto"
	"ai-examgen-be/internal/pkg/serverutils"
	"ai-examgen-be/internal/service"
)

type IGenerationController interface {
	RegisterRoutes(r fiber.Router)
	RetrieveEvidence(ctx *fiber.Ctx) error
	Generate(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
}

type generationController struct {
	generationService service.IGenerationService
}

func NewGenerationController(generationService service.IGenerationService) IGenerationController {
	return &generationController{
		generationService: generationService,
	}
}

func (c *generationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/generation/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("retrieve", c.RetrieveEvidence)
	h.Post("generate", c.Generate)
	h.Post("session/reset", c.ResetSession)
}

func (c *generationController) RetrieveEvidence(ctx *fiber.Ctx) error {
	var req dto.RetrieveEvidenceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.generationService.RetrieveEvidence(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success retrieve evidence", res))
}

func (c *generationController) Generate(ctx *fiber.Ctx) error {
	var req dto.GenerateQuestionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.generationService.Generate(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrGenerationBusy) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success generate question", res))
}

func (c *generationController) ResetSession(ctx *fiber.Ctx) error {
	var req dto.ResetSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.generationService.ResetSession(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}
