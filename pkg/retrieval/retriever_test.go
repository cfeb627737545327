package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"ai-examgen-be/internal/entity"
	"ai-examgen-be/internal/repository/contract"
	"ai-examgen-be/pkg/cache"
	"ai-examgen-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type stubReranker struct {
	scores []float64
	calls  int
}

func (s *stubReranker) Score(_ context.Context, _ string, docs []string) ([]float64, error) {
	s.calls++
	return s.scores[:len(docs)], nil
}

func scoredDoc(id string, score float64, doc string) contract.ScoredChunk {
	return contract.ScoredChunk{
		Chunk: entity.ChunkEmbedding{ChunkID: id, Document: doc},
		Score: score,
	}
}

func newTestRetriever(repo *stubRepo, reranker *stubReranker, params Params) *Retriever {
	collector := NewCollector(repo, stubEmbedder{})
	if reranker == nil {
		return NewRetriever(collector, nil, cache.New(nil), params, nopLogger{})
	}
	return NewRetriever(collector, reranker, cache.New(nil), params, nopLogger{})
}

func TestRetrieveRelaxesNoiseForLargeRequests(t *testing.T) {
	long := strings.Repeat("osmosis moves water across semipermeable membranes ", 3)
	repo := &stubRepo{scoped: map[string][]contract.ScoredChunk{
		"": {
			scoredDoc("l1", 0.9, long),
			scoredDoc("l2", 0.85, long+" along concentration gradients"),
			scoredDoc("s1", 0.8, "osmosis moves water molecules"),
			scoredDoc("s2", 0.75, "diffusion along gradients"),
		},
	}}
	r := newTestRetriever(repo, nil, Params{MinNoiseSurvivors: 1})

	evidence, _, err := r.Retrieve(context.Background(), VariantRequest{TopicName: "osmosis"},
		store.Scope{SubjectID: uuid.New()}, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Two strict survivors are fewer than the requested three, so the short
	// chunks must re-enter through the relaxed thresholds.
	if len(evidence.Candidates) != 3 {
		t.Fatalf("want 3 evidence chunks after relaxation, got %d", len(evidence.Candidates))
	}
}

func TestRerankSkipsSmallPools(t *testing.T) {
	reranker := &stubReranker{scores: []float64{1, 2, 3, 4}}
	r := newTestRetriever(&stubRepo{}, reranker, Params{})

	candidates := []store.Candidate{
		{ChunkID: "a", FusedScore: 0.9, Document: "a"},
		{ChunkID: "b", FusedScore: 0.8, Document: "b"},
		{ChunkID: "c", FusedScore: 0.7, Document: "c"},
		{ChunkID: "d", FusedScore: 0.6, Document: "d"},
	}
	if r.rerankTop(context.Background(), "q", candidates) {
		t.Error("pools below five candidates must skip the cross-encoder")
	}
	if reranker.calls != 0 {
		t.Errorf("reranker called %d times on a small pool", reranker.calls)
	}
}

func TestRerankKeepsTailScores(t *testing.T) {
	reranker := &stubReranker{scores: []float64{1.0, 3.0}}
	r := newTestRetriever(&stubRepo{}, reranker, Params{RerankTopK: 2})

	candidates := []store.Candidate{
		{ChunkID: "a", FusedScore: 0.95, Document: "a"},
		{ChunkID: "b", FusedScore: 0.9, Document: "b"},
		{ChunkID: "c", FusedScore: 0.8, Document: "c"},
		{ChunkID: "d", FusedScore: 0.7, Document: "d"},
		{ChunkID: "e", FusedScore: 0.6, Document: "e"},
	}
	if !r.rerankTop(context.Background(), "q", candidates) {
		t.Fatal("rerank should run on a five-candidate pool")
	}

	// Head is min-max normalized over the window.
	if candidates[0].FusedScore != 0 || candidates[1].FusedScore != 1 {
		t.Errorf("head scores = %v, %v; want 0, 1", candidates[0].FusedScore, candidates[1].FusedScore)
	}
	// Tail keeps its fused scores and relative order.
	for i, want := range []float64{0.8, 0.7, 0.6} {
		if candidates[i+2].FusedScore != want {
			t.Errorf("tail score[%d] = %v, want %v", i, candidates[i+2].FusedScore, want)
		}
	}
}
