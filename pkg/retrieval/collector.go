package retrieval

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"ai-examgen-be/internal/entity"
	"ai-examgen-be/internal/repository/contract"
	"ai-examgen-be/pkg/embedding"
	"ai-examgen-be/pkg/store"
)

const (
	// Per-variant over-fetch multiplier feeding the merge stage.
	perVariantFetch = 20

	// Bonus applied to a candidate's weighted score per extra variant that
	// also surfaced it.
	convergenceBonus = 0.05

	maxConcurrentVariants = 4
)

// Collector fans query variants out to the vector index and merges the
// per-variant result sets into a deduplicated candidate list.
type Collector struct {
	repo     contract.ChunkEmbeddingRepository
	embedder embedding.Provider
}

func NewCollector(repo contract.ChunkEmbeddingRepository, embedder embedding.Provider) *Collector {
	return &Collector{repo: repo, embedder: embedder}
}

// Collect runs every variant against the index in parallel and merges the
// hits. A candidate's vector score is the max weighted score across
// variants, boosted by convergenceBonus for each additional variant that
// returned it. A scoped search that comes back empty is retried
// subject-wide before giving up on that variant.
func (c *Collector) Collect(ctx context.Context, variants []store.QueryVariant, scope contract.ScopeFilter) ([]store.Candidate, error) {
	texts := make([]string, len(variants))
	for i, v := range variants {
		texts[i] = v.Text
	}
	embeddings, err := c.embedder.GenerateBatch(ctx, texts, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	merged := make(map[store.ChunkID]*store.Candidate)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentVariants)
	for i := range variants {
		variant := variants[i]
		queryEmb := embeddings[i]
		g.Go(func() error {
			hits, err := c.searchWithFallback(gctx, queryEmb, scope)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, hit := range hits {
				weighted := hit.Score * variant.Weight
				id := store.ChunkID(hit.Chunk.ChunkID)
				existing, ok := merged[id]
				if !ok {
					cand := candidateFromChunk(hit.Chunk)
					cand.VectorScore = weighted
					cand.VariantHits = 1
					merged[id] = &cand
					continue
				}
				if weighted > existing.VectorScore {
					existing.VectorScore = weighted
				}
				existing.VariantHits++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]store.Candidate, 0, len(merged))
	for _, cand := range merged {
		if cand.VariantHits > 1 {
			cand.VectorScore *= 1 + convergenceBonus*float64(cand.VariantHits-1)
			if cand.VectorScore > 1 {
				cand.VectorScore = 1
			}
		}
		candidates = append(candidates, *cand)
	}
	return candidates, nil
}

// searchWithFallback progressively widens the scope: topic, then unit, then
// whole subject, stopping at the first non-empty result set.
func (c *Collector) searchWithFallback(ctx context.Context, queryEmb []float32, scope contract.ScopeFilter) ([]contract.ScoredChunk, error) {
	hits, err := c.repo.SearchSimilarWithScore(ctx, queryEmb, scope, perVariantFetch)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 || (scope.TopicID == nil && scope.UnitID == nil) {
		return hits, nil
	}

	if scope.TopicID != nil && scope.UnitID != nil {
		unitScope := contract.ScopeFilter{SubjectID: scope.SubjectID, UnitID: scope.UnitID}
		hits, err = c.repo.SearchSimilarWithScore(ctx, queryEmb, unitScope, perVariantFetch)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}

	subjectScope := contract.ScopeFilter{SubjectID: scope.SubjectID}
	return c.repo.SearchSimilarWithScore(ctx, queryEmb, subjectScope, perVariantFetch)
}

func candidateFromChunk(chunk entity.ChunkEmbedding) store.Candidate {
	return store.Candidate{
		ChunkID:    store.ChunkID(chunk.ChunkID),
		Document:   chunk.Document,
		Embedding:  chunk.Embedding,
		MaterialID: chunk.MaterialID,
		PageStart:  chunk.PageStart,
		PageEnd:    chunk.PageEnd,
		Section:    chunk.Section,
		Position:   chunk.Position,
	}
}
