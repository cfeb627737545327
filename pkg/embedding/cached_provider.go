package embedding

import (
	"context"

	"ai-examgen-be/pkg/cache"
)

// CachedProvider wraps another Provider with the two-tier embedding cache.
// Cache failures are invisible to callers; only the inner provider can error.
type CachedProvider struct {
	inner Provider
	cache *cache.TwoTierCache
}

var _ Provider = &CachedProvider{}

func NewCachedProvider(inner Provider, c *cache.TwoTierCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c}
}

func (p *CachedProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if emb, found := p.cache.GetEmbedding(ctx, text); found {
		return emb, nil
	}
	emb, err := p.inner.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	p.cache.SetEmbedding(ctx, text, emb)
	return emb, nil
}

func (p *CachedProvider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := p.cache.GetEmbeddingsBatch(ctx, texts)

	var missTexts []string
	var missIdx []int
	for i, emb := range results {
		if emb == nil {
			missTexts = append(missTexts, texts[i])
			missIdx = append(missIdx, i)
		}
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := p.inner.GenerateBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}

	toCache := make(map[string][]float32, len(missTexts))
	for j, idx := range missIdx {
		results[idx] = computed[j]
		toCache[missTexts[j]] = computed[j]
	}
	p.cache.SetEmbeddingsBatch(ctx, toCache)

	return results, nil
}
