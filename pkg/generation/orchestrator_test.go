package generation

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"ai-examgen-be/pkg/llm"
	"ai-examgen-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

const goodDraft = `{"question_text": "Analyze how systolic pressure changes drive blood through the aortic valve.", "options": ["A. Pressure gradient", "B. Osmosis", "C. Diffusion", "D. Active transport"], "correct_answer": "A. Pressure gradient", "used_chunks": ["c1", "c2"], "supporting_quotes": ["ventricular pressure exceeds aortic pressure"]}`

const goodArbitration = `{"selected_question": ` + goodDraft + `, "confidence_score": 8.0, "selected_from": "Agent A", "action": "accept", "reasoning": "Grounded in CO-1 and LO-1.1."}`

// scriptedProvider answers by prompt shape. chairmanOutput lets tests force
// per-call arbitration behavior.
type scriptedProvider struct {
	chairmanCalls  atomic.Int64
	draftCalls     atomic.Int64
	chairmanOutput func(call int64) string
}

func (s *scriptedProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return "", nil
}

func (s *scriptedProvider) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "Chairman") || strings.Contains(prompt, "BROKEN OUTPUT"):
		call := s.chairmanCalls.Add(1)
		if s.chairmanOutput != nil {
			return s.chairmanOutput(call), nil
		}
		return goodArbitration, nil
	case strings.Contains(prompt, "Review this"):
		return `{"score": 8, "issues": [], "improved_version_text": "ok", "factually_grounded": true}`, nil
	default:
		s.draftCalls.Add(1)
		return goodDraft, nil
	}
}

func testRequest() Request {
	return Request{
		Subject:      "Physiology",
		Topic:        "Cardiac Cycle",
		QuestionType: FormatMCQ,
		Difficulty:   "medium",
		BloomLevel:   "analysis",
	}
}

func testEvidence() *store.EvidenceSet {
	return evidenceWith(map[string]string{
		"c1": "During systole, ventricular pressure exceeds aortic pressure and the valve opens.",
		"c2": "Diastole follows, during which the ventricles refill with blood.",
	})
}

func TestOrchestratorAcceptsFirstAttempt(t *testing.T) {
	provider := &scriptedProvider{}
	orch := NewOrchestrator(provider, AgentModels{Default: "test-model"}, nil, 3, nopLogger{})

	result, err := orch.Generate(context.Background(), testRequest(), testEvidence())
	if err != nil {
		t.Fatal(err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance, got %+v", result)
	}
	if result.Confidence < 8.0 {
		t.Errorf("confidence = %v, want >= 8 after citation boosts", result.Confidence)
	}
	if result.Question == nil || len(result.Question.Options) != RequiredMCQOptions {
		t.Errorf("bad question payload: %+v", result.Question)
	}
	if got := provider.chairmanCalls.Load(); got != 1 {
		t.Errorf("chairman calls = %d, want 1", got)
	}
}

func TestOrchestratorRetriesExactlyMaxAttempts(t *testing.T) {
	// Chairman always demands regeneration; the loop must run exactly
	// maxAttempts times and return the best effort with capped confidence.
	provider := &scriptedProvider{
		chairmanOutput: func(int64) string {
			return `{"selected_question": ` + goodDraft + `, "confidence_score": 9.0, "selected_from": "Agent A", "action": "regenerate", "reasoning": "not grounded"}`
		},
	}
	orch := NewOrchestrator(provider, AgentModels{Default: "test-model"}, nil, 3, nopLogger{})

	result, err := orch.Generate(context.Background(), testRequest(), testEvidence())
	if err != nil {
		t.Fatal(err)
	}
	if result.Accepted {
		t.Fatal("regenerate action must not be accepted")
	}
	if got := provider.chairmanCalls.Load(); got != 3 {
		t.Errorf("chairman calls = %d, want 3 (one per attempt)", got)
	}
	if result.Confidence > ExhaustedConfidenceCap {
		t.Errorf("exhausted confidence = %v, must be <= %v", result.Confidence, ExhaustedConfidenceCap)
	}
	if result.Question == nil {
		t.Error("exhaustion must still return the best attempt payload")
	}
}

func TestOrchestratorRepairsBrokenArbitration(t *testing.T) {
	// First chairman response is garbage; the single repair call returns
	// valid JSON. The attempt must still succeed.
	provider := &scriptedProvider{
		chairmanOutput: func(call int64) string {
			if call == 1 {
				return "I refuse to output JSON today."
			}
			return goodArbitration
		},
	}
	orch := NewOrchestrator(provider, AgentModels{Default: "test-model"}, nil, 3, nopLogger{})

	result, err := orch.Generate(context.Background(), testRequest(), testEvidence())
	if err != nil {
		t.Fatal(err)
	}
	if !result.Accepted {
		t.Fatalf("repair path should recover the attempt, got %+v", result.ValidationErrors)
	}
	if got := provider.chairmanCalls.Load(); got != 2 {
		t.Errorf("chairman calls = %d, want 2 (arbitration + one repair)", got)
	}
}

func TestOrchestratorReportsDraftsAndStageTimings(t *testing.T) {
	provider := &scriptedProvider{}
	orch := NewOrchestrator(provider, AgentModels{Default: "test-model"}, nil, 3, nopLogger{})

	result, err := orch.Generate(context.Background(), testRequest(), testEvidence())
	if err != nil {
		t.Fatal(err)
	}

	// Every council stage's raw output survives into the result for audit.
	if result.Drafts.AgentADraft != goodDraft {
		t.Errorf("agent A draft = %q", result.Drafts.AgentADraft)
	}
	if result.Drafts.AgentBReview == "" {
		t.Error("agent B review missing")
	}
	if result.Drafts.AgentCDraft != goodDraft {
		t.Errorf("agent C draft = %q", result.Drafts.AgentCDraft)
	}
	if result.Drafts.ChairmanOutput != goodArbitration {
		t.Errorf("chairman output = %q", result.Drafts.ChairmanOutput)
	}

	for _, stage := range []string{"draft", "review_alt", "arbitrate", "validate", "total"} {
		if _, ok := result.TimingsMS[stage]; !ok {
			t.Errorf("timing %q missing from %v", stage, result.TimingsMS)
		}
	}
}

type alwaysDuplicate struct{}

func (alwaysDuplicate) IsDuplicate(_ context.Context, _ store.Scope, _ string) (bool, string) {
	return true, "prior question"
}

func TestOrchestratorDuplicateDrivesRetry(t *testing.T) {
	provider := &scriptedProvider{}
	orch := NewOrchestrator(provider, AgentModels{Default: "test-model"}, alwaysDuplicate{}, 2, nopLogger{})

	result, err := orch.Generate(context.Background(), testRequest(), testEvidence())
	if err != nil {
		t.Fatal(err)
	}
	if result.Accepted {
		t.Fatal("duplicate output must not be accepted")
	}
	if result.Confidence > confidenceErrorCap {
		t.Errorf("duplicate-tainted confidence = %v, want <= %v", result.Confidence, confidenceErrorCap)
	}
	found := false
	for _, e := range result.ValidationErrors {
		if strings.Contains(e, "similar") {
			found = true
		}
	}
	if !found {
		t.Errorf("duplicate error missing from %v", result.ValidationErrors)
	}
}
