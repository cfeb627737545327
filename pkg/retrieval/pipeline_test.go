package retrieval

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"ai-examgen-be/pkg/store"
)

func makeCandidate(id string, score float64, text string) store.Candidate {
	return store.Candidate{
		ChunkID:     store.ChunkID(id),
		Document:    text,
		VectorScore: score,
	}
}

func TestFilterNoise(t *testing.T) {
	long := strings.Repeat("the mitochondria produces adenosine triphosphate ", 5)
	candidates := []store.Candidate{
		makeCandidate("a", 0.9, long),
		makeCandidate("b", 0.8, "short"),
		makeCandidate("c", 0.7, "..... 123 456 789 000 111 222 333 444 555 666 777 888 999 .."),
		makeCandidate("d", 0.6, "Table of contents\nChapter 1 .... 5\nChapter 2 .... 9"),
		makeCandidate("e", 0.5, long+" and regulates cellular respiration"),
	}

	got := FilterNoise(candidates, 2)
	if len(got) != 2 {
		t.Fatalf("want 2 survivors, got %d", len(got))
	}
	for _, c := range got {
		if c.ChunkID != "a" && c.ChunkID != "e" {
			t.Errorf("unexpected survivor %s", c.ChunkID)
		}
	}
}

func TestFilterNoiseRelaxesWhenStarved(t *testing.T) {
	candidates := []store.Candidate{
		makeCandidate("a", 0.9, "osmosis moves water molecules"),
		makeCandidate("b", 0.8, "diffusion along gradients"),
	}
	// Both fail the strict 50-char minimum but pass relaxed thresholds.
	got := FilterNoise(candidates, 3)
	if len(got) != 2 {
		t.Fatalf("relaxed pass should keep both, got %d", len(got))
	}
}

func TestBM25ScoreNormalized(t *testing.T) {
	corpus := []string{
		"the cardiac cycle consists of systole and diastole phases",
		"photosynthesis converts light energy into chemical energy",
		"cardiac muscle contracts during systole pumping blood",
	}
	scores := NewBM25Scorer(corpus).ScoreNormalized("cardiac systole")

	if len(scores) != 3 {
		t.Fatalf("want 3 scores, got %d", len(scores))
	}
	for i, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("score[%d] = %v outside [0,1]", i, s)
		}
	}
	if scores[1] >= scores[0] || scores[1] >= scores[2] {
		t.Errorf("off-topic doc outranked on-topic: %v", scores)
	}
	max := scores[0]
	if scores[2] > max {
		max = scores[2]
	}
	if max != 1.0 {
		t.Errorf("best score should be max-normalized to 1, got %v", max)
	}
}

func TestBM25EmptyInputs(t *testing.T) {
	if got := NewBM25Scorer(nil).ScoreNormalized("query"); len(got) != 0 {
		t.Errorf("empty corpus should yield no scores, got %v", got)
	}
	scores := NewBM25Scorer([]string{"some document text"}).ScoreNormalized("")
	if scores[0] != 0 {
		t.Errorf("empty query should score 0, got %v", scores[0])
	}
}

func TestFuseScoresBounds(t *testing.T) {
	candidates := []store.Candidate{
		{ChunkID: "a", VectorScore: 1.0, LexicalScore: 1.0},
		{ChunkID: "b", VectorScore: 0.5, LexicalScore: 0.0},
		{ChunkID: "c", VectorScore: 0.0, LexicalScore: 0.0},
	}
	FuseScores(candidates, 0.6)

	for _, c := range candidates {
		if c.FusedScore < 0 || c.FusedScore > 1 {
			t.Errorf("fused score %v outside [0,1] for %s", c.FusedScore, c.ChunkID)
		}
	}
	if candidates[0].FusedScore != 1.0 {
		t.Errorf("max inputs should fuse to 1, got %v", candidates[0].FusedScore)
	}
	if candidates[1].FusedScore != 0.3 {
		t.Errorf("want 0.6*0.5 = 0.3, got %v", candidates[1].FusedScore)
	}
}

func TestApplyUsagePenaltyFloor(t *testing.T) {
	candidates := []store.Candidate{{ChunkID: "a", FusedScore: 1.0}}
	usage := map[store.ChunkID]int{"a": 50}

	ApplyUsagePenalty(candidates, usage, 0.15)
	if candidates[0].FusedScore != usagePenaltyFloor {
		t.Errorf("heavy usage should bottom out at %v, got %v", usagePenaltyFloor, candidates[0].FusedScore)
	}

	fresh := []store.Candidate{{ChunkID: "b", FusedScore: 0.8}}
	ApplyUsagePenalty(fresh, usage, 0.15)
	if fresh[0].FusedScore != 0.8 {
		t.Errorf("unused chunk must keep its score, got %v", fresh[0].FusedScore)
	}
}

func TestSelectMMRDistinctAndBounded(t *testing.T) {
	var candidates []store.Candidate
	for i := 0; i < 30; i++ {
		emb := make([]float32, 8)
		emb[i%8] = 1
		candidates = append(candidates, store.Candidate{
			ChunkID:    store.ChunkID(fmt.Sprintf("c%02d", i)),
			FusedScore: 1.0 - float64(i)*0.02,
			Embedding:  emb,
		})
	}

	selected := SelectMMR(candidates, 5, 0.4)
	if len(selected) != 5 {
		t.Fatalf("want 5 selected, got %d", len(selected))
	}
	seen := make(map[store.ChunkID]struct{})
	for _, c := range selected {
		if _, dup := seen[c.ChunkID]; dup {
			t.Errorf("duplicate chunk %s in selection", c.ChunkID)
		}
		seen[c.ChunkID] = struct{}{}
	}
	if selected[0].ChunkID != "c00" {
		t.Errorf("selection must seed with the top candidate, got %s", selected[0].ChunkID)
	}
}

func TestSelectMMRPrefersDiversity(t *testing.T) {
	// c1 nearly duplicates c0; c2 is orthogonal with a slightly lower score.
	candidates := []store.Candidate{
		{ChunkID: "c0", FusedScore: 1.0, Embedding: []float32{1, 0, 0}},
		{ChunkID: "c1", FusedScore: 0.95, Embedding: []float32{0.99, 0.1, 0}},
		{ChunkID: "c2", FusedScore: 0.6, Embedding: []float32{0, 1, 0}},
	}
	selected := SelectMMR(candidates, 2, 0.4)
	if selected[1].ChunkID != "c2" {
		t.Errorf("diversity-leaning lambda should pick the orthogonal chunk, got %s", selected[1].ChunkID)
	}
}

func TestSelectMMRFallbackWithoutEmbeddings(t *testing.T) {
	candidates := []store.Candidate{
		{ChunkID: "a", FusedScore: 0.9},
		{ChunkID: "b", FusedScore: 0.8},
		{ChunkID: "c", FusedScore: 0.7},
	}
	selected := SelectMMR(candidates, 2, 0.4)
	if len(selected) != 2 || selected[0].ChunkID != "a" || selected[1].ChunkID != "b" {
		t.Errorf("missing embeddings should degrade to top-n, got %+v", selected)
	}
}

func TestGroupByLocality(t *testing.T) {
	matA := uuid.New()
	matB := uuid.New()
	candidates := []store.Candidate{
		{ChunkID: "x1", FusedScore: 0.95, MaterialID: matB, PageStart: 40, PageEnd: 40},
		{ChunkID: "a1", FusedScore: 0.9, MaterialID: matA, PageStart: 10, PageEnd: 10},
		{ChunkID: "a2", FusedScore: 0.85, MaterialID: matA, PageStart: 11, PageEnd: 11},
		{ChunkID: "a3", FusedScore: 0.8, MaterialID: matA, PageStart: 12, PageEnd: 12},
		{ChunkID: "x2", FusedScore: 0.7, MaterialID: matB, PageStart: 90, PageEnd: 90},
	}

	got := GroupByLocality(candidates)
	if len(got) != 5 {
		t.Fatalf("grouping must not drop candidates, got %d", len(got))
	}
	// The page 10-12 run forms the lead cluster.
	for i, want := range []store.ChunkID{"a1", "a2", "a3"} {
		if got[i].ChunkID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ChunkID, want)
		}
	}
}

func TestAdjacentWithoutPageMetadata(t *testing.T) {
	mat := uuid.New()
	near := store.Candidate{ChunkID: "n1", MaterialID: mat, Position: 2}
	nearNext := store.Candidate{ChunkID: "n2", MaterialID: mat, Position: 4}
	far := store.Candidate{ChunkID: "f", MaterialID: mat, Position: 500}

	if !adjacent(near, nearNext) {
		t.Error("positions 2 and 4 should be adjacent without page metadata")
	}
	if adjacent(near, far) {
		t.Error("positions 2 and 500 must not count as adjacent without page metadata")
	}
}

func TestGroupByLocalityUnpaginatedPositions(t *testing.T) {
	mat := uuid.New()
	candidates := []store.Candidate{
		{ChunkID: "p1", FusedScore: 0.9, MaterialID: mat, Position: 1},
		{ChunkID: "p2", FusedScore: 0.85, MaterialID: mat, Position: 2},
		{ChunkID: "p3", FusedScore: 0.8, MaterialID: mat, Position: 3},
		{ChunkID: "far1", FusedScore: 0.7, MaterialID: mat, Position: 500},
		{ChunkID: "far2", FusedScore: 0.6, MaterialID: mat, Position: 900},
	}

	got := GroupByLocality(candidates)
	if len(got) != 5 {
		t.Fatalf("grouping must not drop candidates, got %d", len(got))
	}
	// Only the position 1-3 run clusters; far positions stay outsiders.
	for i, want := range []store.ChunkID{"p1", "p2", "p3"} {
		if got[i].ChunkID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ChunkID, want)
		}
	}
}

func TestGroupByLocalityNoCluster(t *testing.T) {
	candidates := []store.Candidate{
		{ChunkID: "a", FusedScore: 0.9, MaterialID: uuid.New(), PageStart: 1, PageEnd: 1},
		{ChunkID: "b", FusedScore: 0.8, MaterialID: uuid.New(), PageStart: 50, PageEnd: 50},
		{ChunkID: "c", FusedScore: 0.7, MaterialID: uuid.New(), PageStart: 99, PageEnd: 99},
	}
	got := GroupByLocality(candidates)
	for i := range candidates {
		if got[i].ChunkID != candidates[i].ChunkID {
			t.Errorf("scattered chunks must keep score order, position %d = %s", i, got[i].ChunkID)
		}
	}
}
