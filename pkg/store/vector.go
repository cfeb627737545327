package store

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths and near-zero magnitudes yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA < 1e-10 || normB < 1e-10 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
