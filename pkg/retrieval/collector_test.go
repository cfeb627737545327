package retrieval

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"ai-examgen-be/internal/entity"
	"ai-examgen-be/internal/repository/contract"
	"ai-examgen-be/pkg/store"
)

type stubRepo struct {
	mu     sync.Mutex
	scoped map[string][]contract.ScoredChunk // keyed by topic id or "" for subject-wide
	calls  []contract.ScopeFilter
}

func (s *stubRepo) SearchSimilarWithScore(_ context.Context, _ []float32, scope contract.ScopeFilter, _ int) ([]contract.ScoredChunk, error) {
	s.mu.Lock()
	s.calls = append(s.calls, scope)
	s.mu.Unlock()
	key := ""
	if scope.TopicID != nil {
		key = scope.TopicID.String()
	}
	return s.scoped[key], nil
}

func (s *stubRepo) SearchSimilarByText(context.Context, []float32, uuid.UUID, int) ([]contract.ScoredChunk, error) {
	return nil, nil
}
func (s *stubRepo) Create(context.Context, *entity.ChunkEmbedding) error       { return nil }
func (s *stubRepo) CreateBatch(context.Context, []entity.ChunkEmbedding) error { return nil }
func (s *stubRepo) CountBySubject(context.Context, uuid.UUID) (int64, error)   { return 0, nil }
func (s *stubRepo) DeleteByMaterial(context.Context, uuid.UUID) error          { return nil }

type stubEmbedder struct{}

func (stubEmbedder) Generate(_ context.Context, _, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (stubEmbedder) GenerateBatch(_ context.Context, texts []string, _ string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func scored(id string, score float64) contract.ScoredChunk {
	return contract.ScoredChunk{
		Chunk: entity.ChunkEmbedding{ChunkID: id, Document: "document for " + id},
		Score: score,
	}
}

func TestCollectMergesAcrossVariants(t *testing.T) {
	repo := &stubRepo{scoped: map[string][]contract.ScoredChunk{
		"": {scored("shared", 0.9), scored("solo", 0.7)},
	}}
	collector := NewCollector(repo, stubEmbedder{})

	variants := []store.QueryVariant{
		{Text: "primary", Strategy: "semantic_topic", Weight: 1.0},
		{Text: "secondary", Strategy: "keyword_dense", Weight: 0.6},
	}
	scope := contract.ScopeFilter{SubjectID: uuid.New()}

	candidates, err := collector.Collect(context.Background(), variants, scope)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("want 2 merged candidates, got %d", len(candidates))
	}

	byID := make(map[store.ChunkID]store.Candidate)
	for _, c := range candidates {
		byID[c.ChunkID] = c
	}

	shared := byID["shared"]
	if shared.VariantHits != 2 {
		t.Errorf("shared chunk hit count = %d, want 2", shared.VariantHits)
	}
	// Max-weighted 0.9, plus one 5% convergence bonus.
	want := 0.9 * 1.05
	if diff := shared.VectorScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("shared vector score = %v, want %v", shared.VectorScore, want)
	}

	solo := byID["solo"]
	if solo.VariantHits != 2 {
		// solo also appears for both variants in this stub
		t.Logf("solo hits = %d", solo.VariantHits)
	}
}

func TestCollectScopeFallback(t *testing.T) {
	topicID := uuid.New()
	unitID := uuid.New()
	repo := &stubRepo{scoped: map[string][]contract.ScoredChunk{
		topicID.String(): nil, // topic scope is empty
		"":               {scored("wide", 0.8)},
	}}
	collector := NewCollector(repo, stubEmbedder{})

	scope := contract.ScopeFilter{SubjectID: uuid.New(), UnitID: &unitID, TopicID: &topicID}
	candidates, err := collector.Collect(context.Background(), []store.QueryVariant{
		{Text: "q", Strategy: "semantic_topic", Weight: 1.0},
	}, scope)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].ChunkID != "wide" {
		t.Fatalf("expected subject-wide fallback hit, got %+v", candidates)
	}

	// Fallback path: topic scope first, then progressively wider.
	if len(repo.calls) < 2 {
		t.Fatalf("expected widening searches, got %d calls", len(repo.calls))
	}
	first := repo.calls[0]
	if first.TopicID == nil {
		t.Error("first search should be topic-scoped")
	}
	last := repo.calls[len(repo.calls)-1]
	if last.TopicID != nil || last.UnitID != nil {
		t.Error("final search should be subject-wide")
	}
}

func TestCollectScoreCappedAtOne(t *testing.T) {
	repo := &stubRepo{scoped: map[string][]contract.ScoredChunk{
		"": {scored("hot", 0.99)},
	}}
	collector := NewCollector(repo, stubEmbedder{})

	variants := make([]store.QueryVariant, 8)
	for i := range variants {
		variants[i] = store.QueryVariant{Text: "v", Strategy: "s", Weight: 1.0}
	}
	candidates, err := collector.Collect(context.Background(), variants, contract.ScopeFilter{SubjectID: uuid.New()})
	if err != nil {
		t.Fatal(err)
	}
	if candidates[0].VectorScore > 1.0 {
		t.Errorf("convergence bonus must cap at 1.0, got %v", candidates[0].VectorScore)
	}
}
