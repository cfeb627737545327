package retrieval

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"ai-examgen-be/pkg/store"
)

const localityMinClusterSize = 3

type cluster struct {
	members []store.Candidate
	score   float64
}

func clusterScore(members []store.Candidate) float64 {
	var sum float64
	for _, m := range members {
		sum += m.FusedScore
	}
	mean := sum / float64(len(members))
	return mean * math.Log2(float64(len(members))+1)
}

func adjacent(a, b store.Candidate) bool {
	if a.MaterialID != b.MaterialID {
		return false
	}
	// Position distance decides when page metadata is absent.
	if a.PageStart == 0 && a.PageEnd == 0 && b.PageStart == 0 {
		return b.Position-a.Position <= 2
	}
	// Same or consecutive pages keep narrative continuity.
	return b.PageStart-a.PageEnd <= 1 && a.PageStart <= b.PageStart
}

// GroupByLocality reorders candidates so chunks from the same document
// region sit together. When a strong cluster of at least three adjacent
// chunks exists, the result leads with the cluster followed by at most two
// high-scoring outsiders. Otherwise the input order is preserved.
func GroupByLocality(candidates []store.Candidate) []store.Candidate {
	if len(candidates) < localityMinClusterSize {
		return candidates
	}

	byDoc := make([]store.Candidate, len(candidates))
	copy(byDoc, candidates)
	sort.SliceStable(byDoc, func(i, j int) bool {
		a, b := byDoc[i], byDoc[j]
		if a.MaterialID != b.MaterialID {
			return a.MaterialID.String() < b.MaterialID.String()
		}
		if a.PageStart != b.PageStart {
			return a.PageStart < b.PageStart
		}
		return a.Position < b.Position
	})

	var clusters []cluster
	current := []store.Candidate{byDoc[0]}
	for i := 1; i < len(byDoc); i++ {
		if adjacent(byDoc[i-1], byDoc[i]) {
			current = append(current, byDoc[i])
			continue
		}
		clusters = append(clusters, cluster{members: current, score: clusterScore(current)})
		current = []store.Candidate{byDoc[i]}
	}
	clusters = append(clusters, cluster{members: current, score: clusterScore(current)})

	best := clusters[0]
	for _, c := range clusters[1:] {
		if c.score > best.score {
			best = c
		}
	}
	if len(best.members) < localityMinClusterSize {
		return candidates
	}

	inCluster := make(map[store.ChunkID]struct{}, len(best.members))
	for _, m := range best.members {
		inCluster[m.ChunkID] = struct{}{}
	}

	result := append([]store.Candidate(nil), best.members...)
	outsiders := 0
	for _, c := range candidates {
		if _, ok := inCluster[c.ChunkID]; ok {
			continue
		}
		if outsiders == 2 {
			break
		}
		result = append(result, c)
		outsiders++
	}
	return result
}

// materialSpread counts distinct materials among candidates; used for the
// multi-source diversity signal surfaced to generation.
func materialSpread(candidates []store.Candidate) int {
	seen := make(map[uuid.UUID]struct{})
	for _, c := range candidates {
		seen[c.MaterialID] = struct{}{}
	}
	return len(seen)
}
