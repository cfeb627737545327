package serverutils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func SuccessResponse(message string, data interface{}) ApiResponse {
	return ApiResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(message string, errs interface{}) ApiResponse {
	return ApiResponse{
		Success: false,
		Message: message,
		Errors:  errs,
	}
}

var validate = validator.New()

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "request validation failed"
}

func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return &ValidationError{Fields: fields}
	}
	return err
}

// ErrorHandlerMiddleware converts errors bubbled out of handlers into a
// consistent JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse("Validation failed", verr.Fields))
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return c.Status(ferr.Code).JSON(ErrorResponse(ferr.Message, nil))
		}

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(err.Error(), nil))
	}
}
