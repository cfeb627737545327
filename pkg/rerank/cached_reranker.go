package rerank

import (
	"context"

	"ai-examgen-be/pkg/cache"
)

// CachedReranker fetches scores for previously seen (query, doc) pairs from
// the two-tier cache and computes the remaining pairs in one batch call.
type CachedReranker struct {
	inner Reranker
	cache *cache.TwoTierCache
}

var _ Reranker = &CachedReranker{}

func NewCachedReranker(inner Reranker, c *cache.TwoTierCache) *CachedReranker {
	return &CachedReranker{inner: inner, cache: c}
}

func (r *CachedReranker) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	scores := make([]float64, len(docs))
	var missDocs []string
	var missIdx []int

	for i, doc := range docs {
		if score, found := r.cache.GetCEScore(ctx, query, doc); found {
			scores[i] = score
		} else {
			missDocs = append(missDocs, doc)
			missIdx = append(missIdx, i)
		}
	}
	if len(missDocs) == 0 {
		return scores, nil
	}

	computed, err := r.inner.Score(ctx, query, missDocs)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		scores[idx] = computed[j]
	}
	r.cache.SetCEScoresBatch(ctx, query, missDocs, computed)

	return scores, nil
}
