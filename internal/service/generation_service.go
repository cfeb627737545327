package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai-examgen-be/internal/dto"
	"ai-examgen-be/internal/pkg/logger"
	"ai-examgen-be/pkg/cache"
	"ai-examgen-be/pkg/events"
	"ai-examgen-be/pkg/generation"
	"ai-examgen-be/pkg/novelty"
	"ai-examgen-be/pkg/retrieval"
	"ai-examgen-be/pkg/store"
)

var ErrGenerationBusy = errors.New("a generation run is already in progress for this subject")

type IGenerationService interface {
	RetrieveEvidence(ctx context.Context, req *dto.RetrieveEvidenceRequest) (*dto.RetrieveEvidenceResponse, error)
	Generate(ctx context.Context, req *dto.GenerateQuestionRequest) (*dto.GenerateQuestionResponse, error)
	ResetSession(ctx context.Context, req *dto.ResetSessionRequest) (*dto.ResetSessionResponse, error)
}

type generationService struct {
	retriever        *retrieval.Retriever
	orchestrator     *generation.Orchestrator
	session          *novelty.SessionState
	guard            *novelty.Guard
	lock             *cache.GenerationLock
	publisherService IPublisherService
	log              logger.ILogger
}

func NewGenerationService(
	retriever *retrieval.Retriever,
	orchestrator *generation.Orchestrator,
	session *novelty.SessionState,
	guard *novelty.Guard,
	lock *cache.GenerationLock,
	publisherService IPublisherService,
	log logger.ILogger,
) IGenerationService {
	return &generationService{
		retriever:        retriever,
		orchestrator:     orchestrator,
		session:          session,
		guard:            guard,
		lock:             lock,
		publisherService: publisherService,
		log:              log,
	}
}

func (s *generationService) RetrieveEvidence(ctx context.Context, req *dto.RetrieveEvidenceRequest) (*dto.RetrieveEvidenceResponse, error) {
	scope := store.Scope{SubjectID: req.SubjectId, UnitID: req.UnitId, TopicID: req.TopicId}
	n := req.NumResults
	if n <= 0 {
		n = 5
	}

	evidence, diag, err := s.retriever.Retrieve(ctx, retrieval.VariantRequest{
		TopicName:    req.TopicName,
		OutcomeText:  req.OutcomeText,
		CourseText:   req.CourseText,
		BloomLevel:   req.BloomLevel,
		Difficulty:   req.Difficulty,
		QuestionType: req.QuestionType,
	}, scope, n, s.session.Usage(scope))
	if err != nil {
		return nil, err
	}

	return &dto.RetrieveEvidenceResponse{
		Chunks:      evidenceChunks(evidence),
		Diagnostics: diag,
	}, nil
}

func (s *generationService) Generate(ctx context.Context, req *dto.GenerateQuestionRequest) (*dto.GenerateQuestionResponse, error) {
	scope := store.Scope{SubjectID: req.SubjectId, UnitID: req.UnitId, TopicID: req.TopicId}

	// One run per subject at a time; failing fast beats corrupting shared
	// session and novelty state.
	runID := uuid.NewString()
	if err := s.lock.Acquire(ctx, req.SubjectId.String(), runID); err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, ErrGenerationBusy
		}
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	defer s.lock.Release(ctx, req.SubjectId.String())

	n := req.NumEvidence
	if n <= 0 {
		n = 5
	}

	evidence, diag, err := s.retriever.Retrieve(ctx, retrieval.VariantRequest{
		TopicName:    req.TopicName,
		OutcomeText:  req.OutcomeText,
		CourseText:   req.CourseText,
		BloomLevel:   req.BloomLevel,
		Difficulty:   req.Difficulty,
		QuestionType: req.QuestionType,
	}, scope, n, s.session.Usage(scope))
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	result, err := s.orchestrator.Generate(ctx, generation.Request{
		Subject:          req.Subject,
		Topic:            req.TopicName,
		QuestionType:     req.QuestionType,
		Difficulty:       req.Difficulty,
		BloomLevel:       req.BloomLevel,
		Scope:            scope,
		LearningOutcomes: req.LearningOutcomes,
		CourseOutcomes:   req.CourseOutcomes,
		BloomWeights:     req.BloomWeights,
		SampleQuestions:  req.SampleQuestions,
		SkillContent:     req.SkillContent,
		RecentQuestions:  s.session.AcceptedTexts(scope),
	}, evidence)
	if err != nil {
		return nil, err
	}

	questionID := uuid.NewString()
	usedChunks := make([]store.ChunkID, 0, len(result.Question.UsedChunks))
	for _, id := range result.Question.UsedChunks {
		usedChunks = append(usedChunks, store.ChunkID(id))
	}

	// Both accepted and exhausted outputs enter the session so later runs
	// do not repeat them.
	emb := s.guard.RegisterOutput(ctx, scope, result.Question.QuestionText, usedChunks)

	// Post-accept diagnostics; advisory, never blocking.
	if emb != nil {
		result.Novel = s.guard.IsNovel(ctx, scope, emb)
	}
	result.Grounded = s.guard.IsGrounded(ctx, req.SubjectId, result.Question.QuestionText)

	// Accepted outputs reach the long-lived history through the consumer of
	// the QUESTION_ACCEPTED event; exhausted ones are written here directly.
	if result.Accepted {
		s.publishAccepted(ctx, questionID, scope, result)
	} else {
		s.guard.RegisterHistory(ctx, scope, questionID, emb)
	}

	resp := &dto.GenerateQuestionResponse{
		QuestionId:   questionID,
		Question:     result.Question,
		Confidence:   result.Confidence,
		Accepted:     result.Accepted,
		SelectedFrom: result.SelectedFrom,
		Attempts:     result.Attempts,
		Novel:        result.Novel,
		Grounded:     result.Grounded,
		Errors:       result.ValidationErrors,
		Drafts:       result.Drafts,
		Evidence:     evidenceChunks(evidence),
		ModelsUsed:   result.ModelsUsed,
		TimingsMs:    result.TimingsMS,
	}
	if req.IncludeDiagnostics {
		resp.Diagnostics = diag
	}
	return resp, nil
}

func (s *generationService) ResetSession(ctx context.Context, req *dto.ResetSessionRequest) (*dto.ResetSessionResponse, error) {
	scope := store.Scope{SubjectID: req.SubjectId, TopicID: req.TopicId}
	s.session.Reset(scope)
	if payload, err := events.Marshal(events.NewSessionReset(scope.Key())); err == nil {
		_ = s.publisherService.Publish(ctx, payload)
	}
	s.log.Info("generation", "session reset", map[string]interface{}{
		"scope": scope.Key(),
	})
	return &dto.ResetSessionResponse{ScopeKey: scope.Key()}, nil
}

func (s *generationService) publishAccepted(ctx context.Context, questionID string, scope store.Scope, result *generation.Result) {
	event := events.NewQuestionAccepted(
		questionID,
		scope.Key(),
		result.Question.QuestionText,
		result.Confidence,
		result.Question.UsedChunks,
	)
	payload, err := events.Marshal(event)
	if err != nil {
		return
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.log.Warn("generation", "failed to publish accepted question", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func evidenceChunks(evidence *store.EvidenceSet) []dto.EvidenceChunk {
	chunks := make([]dto.EvidenceChunk, len(evidence.Candidates))
	for i, c := range evidence.Candidates {
		chunks[i] = dto.EvidenceChunk{
			ChunkId:    string(c.ChunkID),
			Document:   c.Document,
			Score:      c.FusedScore,
			MaterialId: c.MaterialID,
			PageStart:  c.PageStart,
			PageEnd:    c.PageEnd,
			Section:    c.Section,
		}
	}
	return chunks
}
