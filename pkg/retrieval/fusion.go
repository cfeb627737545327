package retrieval

import (
	"sort"

	"ai-examgen-be/pkg/store"
)

const (
	// Weight of the vector score in hybrid fusion; the lexical score gets
	// the complement.
	DefaultFusionAlpha = 0.6

	// Usage penalty never drops a chunk below this fraction of its score.
	usagePenaltyFloor = 0.3

	// Per-prior-use multiplicative decay rate.
	DefaultUsagePenaltyRate = 0.15
)

// FuseScores combines vector and lexical scores into FusedScore for every
// candidate: alpha*vector + (1-alpha)*lexical.
func FuseScores(candidates []store.Candidate, alpha float64) {
	for i := range candidates {
		candidates[i].FusedScore = alpha*candidates[i].VectorScore + (1-alpha)*candidates[i].LexicalScore
	}
}

// ApplyUsagePenalty discounts chunks already cited in this session so later
// questions draw on fresh evidence. usage maps chunk id to prior-use count.
func ApplyUsagePenalty(candidates []store.Candidate, usage map[store.ChunkID]int, rate float64) {
	if len(usage) == 0 {
		return
	}
	for i := range candidates {
		count := usage[candidates[i].ChunkID]
		if count == 0 {
			continue
		}
		penalty := 1 - rate*float64(count)
		if penalty < usagePenaltyFloor {
			penalty = usagePenaltyFloor
		}
		candidates[i].FusedScore *= penalty
	}
}

// SortByFusedScore orders candidates by descending fused score with chunk id
// as a stable tiebreak.
func SortByFusedScore(candidates []store.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})
}
