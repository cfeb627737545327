package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ai-examgen-be/internal/pkg/logger"
	"ai-examgen-be/pkg/llm"
	"ai-examgen-be/pkg/store"
)

// DefaultMaxAttempts bounds the draft/review/arbitrate/validate loop.
const DefaultMaxAttempts = 3

// ErrNoOutput is returned when every stage of every attempt failed to
// produce any candidate payload at all.
var ErrNoOutput = errors.New("generation produced no candidate output across all attempts")

// DuplicateChecker reports whether a candidate text duplicates an output
// already accepted in this session.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, scope store.Scope, text string) (bool, string)
}

// AgentModels assigns a model per council role. Empty fields fall back to
// Default.
type AgentModels struct {
	Drafter   string
	Reviewer  string
	Alternate string
	Chairman  string
	Default   string
}

func (a AgentModels) resolve(available []string) AgentModels {
	pick := func(preferred string) string {
		if preferred == "" {
			preferred = a.Default
		}
		return llm.ResolveModel(preferred, available)
	}
	return AgentModels{
		Drafter:   pick(a.Drafter),
		Reviewer:  pick(a.Reviewer),
		Alternate: pick(a.Alternate),
		Chairman:  pick(a.Chairman),
		Default:   a.Default,
	}
}

// Orchestrator runs the bounded multi-draft council loop for one question.
type Orchestrator struct {
	provider    llm.Provider
	models      AgentModels
	dedup       DuplicateChecker
	maxAttempts int
	log         logger.ILogger
}

func NewOrchestrator(provider llm.Provider, models AgentModels, dedup DuplicateChecker, maxAttempts int, log logger.ILogger) *Orchestrator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Orchestrator{provider: provider, models: models, dedup: dedup, maxAttempts: maxAttempts, log: log}
}

// Generate drives the state machine: draft, fork-join review and
// alternative draft, arbitrate, repair, validate, then accept or retry.
// Exhaustion returns the best-scored attempt with suppressed confidence
// rather than an error.
func (o *Orchestrator) Generate(ctx context.Context, req Request, evidence *store.EvidenceSet) (*Result, error) {
	start := time.Now()
	models := o.models
	if lister, ok := o.provider.(llm.ModelLister); ok {
		if available, err := lister.ListModels(ctx); err == nil && len(available) > 0 {
			models = o.models.resolve(available)
		}
	}

	evidenceText := formatEvidence(evidence)
	var best *Attempt

	for attemptNo := 1; attemptNo <= o.maxAttempts; attemptNo++ {
		attempt, err := o.runAttempt(ctx, req, evidence, evidenceText, models, attemptNo)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.log.Warn("generation", "attempt failed", map[string]interface{}{
				"attempt": attemptNo,
				"error":   err.Error(),
			})
			continue
		}

		if len(attempt.ValidationErrors) == 0 && attempt.Accepted() {
			o.log.Info("generation", "question accepted", map[string]interface{}{
				"attempt":    attemptNo,
				"confidence": attempt.Confidence,
				"topic":      req.Topic,
			})
			return o.buildResult(attempt, true, attemptNo, models, start, evidence), nil
		}

		if best == nil || attempt.Confidence > best.Confidence {
			best = attempt
		}
		o.log.Info("generation", "attempt rejected, retrying", map[string]interface{}{
			"attempt": attemptNo,
			"errors":  attempt.ValidationErrors,
		})
	}

	if best == nil {
		return nil, ErrNoOutput
	}

	// Exhausted: surface the best effort with deliberately low confidence.
	if best.Confidence > ExhaustedConfidenceCap {
		best.Confidence = ExhaustedConfidenceCap
	}
	o.log.Warn("generation", "attempts exhausted, returning best effort", map[string]interface{}{
		"confidence": best.Confidence,
		"errors":     best.ValidationErrors,
		"topic":      req.Topic,
	})
	return o.buildResult(best, false, o.maxAttempts, models, start, evidence), nil
}

// Accepted reports whether the arbitration marked this attempt acceptable.
func (a *Attempt) Accepted() bool {
	return a.Action == ActionAccept
}

func (o *Orchestrator) runAttempt(ctx context.Context, req Request, evidence *store.EvidenceSet, evidenceText string, models AgentModels, attemptNo int) (*Attempt, error) {
	timings := map[string]int64{}
	stage := time.Now()

	draft, err := o.call(ctx, models.Drafter, roleDrafter, BuildDraftPrompt(req, evidenceText, attemptNo))
	if err != nil {
		return nil, err
	}
	timings["draft"] = time.Since(stage).Milliseconds()

	// Review and alternative draft have no data dependency; fork-join.
	stage = time.Now()
	var review, altDraft string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		review, err = o.call(gctx, models.Reviewer, roleReviewer, BuildReviewPrompt(req, evidenceText, draft))
		return err
	})
	g.Go(func() error {
		var err error
		altDraft, err = o.call(gctx, models.Alternate, roleAlternate, BuildAlternativePrompt(req, evidenceText, attemptNo))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	timings["review_alt"] = time.Since(stage).Milliseconds()

	stage = time.Now()
	arbitrationRaw, err := o.call(ctx, models.Chairman, roleChairman, BuildArbitrationPrompt(req, evidenceText, draft, review, altDraft))
	if err != nil {
		return nil, err
	}

	arb := ParseArbitration(arbitrationRaw)
	if arb == nil {
		// One automated repair pass before giving up on this attempt.
		repaired, repErr := o.call(ctx, models.Chairman, roleChairman, BuildRepairPrompt(arbitrationRaw))
		if repErr == nil {
			arb = ParseArbitration(repaired)
		}
	}
	timings["arbitrate"] = time.Since(stage).Milliseconds()

	attempt := &Attempt{
		Number: attemptNo,
		Drafts: Drafts{
			AgentADraft:    draft,
			AgentBReview:   review,
			AgentCDraft:    altDraft,
			ChairmanOutput: arbitrationRaw,
		},
		TimingsMS: timings,
	}

	var payload *QuestionPayload
	if arb != nil {
		payload = arb.SelectedQuestion
		attempt.SelectedFrom = arb.SelectedFrom
		attempt.Confidence = arb.ConfidenceScore
		attempt.Action = arb.Action
	}
	if payload == nil {
		// Chairman unusable; fall back to the primary draft.
		payload = UnwrapQuestion(ExtractJSON(draft))
		attempt.SelectedFrom = "Agent A"
		attempt.Confidence = 5.0
		attempt.Action = ActionAccept
	}
	if payload == nil {
		return nil, errors.New("no parseable question in any draft")
	}

	if req.QuestionType == FormatMCQ {
		if len(payload.Options) == 0 {
			payload.Options = ExtractOptionsFromText(payload.QuestionText)
		}
		if len(payload.Options) != RequiredMCQOptions {
			payload = RepairMCQOptions(ctx, o.provider, models.Chairman, payload)
		}
	}

	stage = time.Now()
	vctx := ValidationContext{
		Evidence:   evidence,
		BloomLevel: req.BloomLevel,
		Difficulty: req.Difficulty,
	}
	if o.dedup != nil {
		if dup, of := o.dedup.IsDuplicate(ctx, req.Scope, payload.QuestionText); dup {
			vctx.DuplicateOf = of
		}
	}

	attempt.Question = payload
	attempt.ValidationErrors = Validate(payload, req.QuestionType, vctx)
	attempt.Confidence = AdjustConfidence(attempt.Confidence, payload, attempt.ValidationErrors, req.BloomLevel)
	timings["validate"] = time.Since(stage).Milliseconds()

	return attempt, nil
}

func (o *Orchestrator) call(ctx context.Context, model, system, prompt string) (string, error) {
	return o.provider.Generate(ctx, prompt,
		llm.WithModel(model),
		llm.WithSystem(system),
		llm.WithTemperature(0.7),
	)
}

func (o *Orchestrator) buildResult(attempt *Attempt, accepted bool, attempts int, models AgentModels, start time.Time, evidence *store.EvidenceSet) *Result {
	timings := map[string]int64{
		"total": time.Since(start).Milliseconds(),
	}
	for stage, ms := range attempt.TimingsMS {
		timings[stage] = ms
	}
	return &Result{
		Question:         attempt.Question,
		Confidence:       attempt.Confidence,
		SelectedFrom:     attempt.SelectedFrom,
		Accepted:         accepted,
		Attempts:         attempts,
		ValidationErrors: attempt.ValidationErrors,
		Novel:            true,
		Grounded:         true,
		Drafts:           attempt.Drafts,
		ModelsUsed: map[string]string{
			"drafter":   models.Drafter,
			"reviewer":  models.Reviewer,
			"alternate": models.Alternate,
			"chairman":  models.Chairman,
		},
		TimingsMS: timings,
		Evidence:  evidence,
	}
}

func formatEvidence(evidence *store.EvidenceSet) string {
	if evidence == nil || len(evidence.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range evidence.Candidates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[chunk ")
		b.WriteString(string(c.ChunkID))
		b.WriteString("]\n")
		b.WriteString(c.Document)
	}
	return b.String()
}
