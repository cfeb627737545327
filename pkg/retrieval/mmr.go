package retrieval

import (
	"ai-examgen-be/pkg/store"
)

const (
	// Lambda for the final selection pass: diversity-leaning.
	DefaultMMRLambdaFinal = 0.4

	// Lambda for intermediate pruning passes: relevance-leaning.
	DefaultMMRLambdaIntermediate = 0.7
)

// mmrPoolSize bounds the candidate pool considered by MMR.
func mmrPoolSize(n int) int {
	pool := 3 * n
	if pool < 15 {
		pool = 15
	}
	return pool
}

// SelectMMR picks up to n candidates by maximal marginal relevance:
// lambda*relevance - (1-lambda)*max-similarity-to-selected. Candidates must
// arrive sorted by descending fused score. Candidates without embeddings
// degrade to plain top-n by fused score.
func SelectMMR(candidates []store.Candidate, n int, lambda float64) []store.Candidate {
	if len(candidates) <= n {
		return candidates
	}

	hasEmbeddings := true
	pool := candidates
	if max := mmrPoolSize(n); len(pool) > max {
		pool = pool[:max]
	}
	for _, c := range pool {
		if len(c.Embedding) == 0 {
			hasEmbeddings = false
			break
		}
	}
	if !hasEmbeddings {
		return candidates[:n]
	}

	selected := make([]store.Candidate, 0, n)
	remaining := make([]store.Candidate, len(pool))
	copy(remaining, pool)

	// Seed with the top-scored candidate.
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < n && len(remaining) > 0 {
		bestIdx := -1
		bestScore := -1e9
		for i, cand := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				sim := store.CosineSimilarity(cand.Embedding, sel.Embedding)
				if sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*cand.FusedScore - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
