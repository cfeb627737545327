package rerank

import "context"

// Reranker scores query/document pairs with a pairwise relevance model.
// Scores are model-scale (not normalized); callers min-max normalize over
// the batch they care about.
type Reranker interface {
	// Score returns one relevance score per document, parallel to docs.
	Score(ctx context.Context, query string, docs []string) ([]float64, error)
}
