package retrieval

import (
	"context"
	"math"
	"strings"
	"time"

	"ai-examgen-be/internal/pkg/logger"
	"ai-examgen-be/internal/repository/contract"
	"ai-examgen-be/pkg/cache"
	"ai-examgen-be/pkg/rerank"
	"ai-examgen-be/pkg/store"
)

// Params are the knobs of the retrieval pipeline. Zero values are replaced
// with defaults by Normalize.
type Params struct {
	FusionAlpha       float64
	UsagePenaltyRate  float64
	MMRLambdaFinal    float64
	MMRLambdaMid      float64
	RerankTopK        int
	MinNoiseSurvivors int
}

func (p *Params) Normalize() {
	if p.FusionAlpha == 0 {
		p.FusionAlpha = DefaultFusionAlpha
	}
	if p.UsagePenaltyRate == 0 {
		p.UsagePenaltyRate = DefaultUsagePenaltyRate
	}
	if p.MMRLambdaFinal == 0 {
		p.MMRLambdaFinal = DefaultMMRLambdaFinal
	}
	if p.MMRLambdaMid == 0 {
		p.MMRLambdaMid = DefaultMMRLambdaIntermediate
	}
	if p.RerankTopK == 0 {
		p.RerankTopK = 50
	}
	if p.MinNoiseSurvivors == 0 {
		p.MinNoiseSurvivors = 5
	}
}

// Diagnostics records provenance for debugging and the timing breakdown
// surfaced in responses.
type Diagnostics struct {
	Variants      []store.QueryVariant `json:"variants"`
	CandidateFlow map[string]int       `json:"candidate_flow"`
	TimingsMS     map[string]int64     `json:"timings_ms"`
	RerankerUsed  bool                 `json:"reranker_used"`
	CacheHit      bool                 `json:"cache_hit"`
	Materials     int                  `json:"materials"`
}

// rerankMinPool is the minimum candidate count worth a cross-encoder pass.
const rerankMinPool = 5

// Retriever runs the hybrid evidence pipeline: variant fan-out, noise
// filter, lexical rescoring, fusion, optional cross-encoder rerank, MMR
// diversity selection and locality grouping.
type Retriever struct {
	collector *Collector
	reranker  rerank.Reranker
	cache     *cache.TwoTierCache
	params    Params
	log       logger.ILogger
}

func NewRetriever(collector *Collector, reranker rerank.Reranker, c *cache.TwoTierCache, params Params, log logger.ILogger) *Retriever {
	params.Normalize()
	return &Retriever{collector: collector, reranker: reranker, cache: c, params: params, log: log}
}

// Retrieve selects up to n evidence chunks for the request. usage carries
// per-chunk prior-use counts from the session so repeated generations
// spread across the material.
func (r *Retriever) Retrieve(ctx context.Context, req VariantRequest, scope store.Scope, n int, usage map[store.ChunkID]int) (*store.EvidenceSet, *Diagnostics, error) {
	start := time.Now()
	diag := &Diagnostics{
		CandidateFlow: map[string]int{},
		TimingsMS:     map[string]int64{},
	}

	variants := BuildQueryVariants(req)
	diag.Variants = variants
	primaryQuery := variants[0].Text

	// Cache only uncontended first retrievals; usage-penalized reruns must
	// recompute.
	if len(usage) == 0 {
		if cached, ok := r.cache.GetCachedRetrieval(ctx, scope, primaryQuery); ok {
			diag.CacheHit = true
			diag.TimingsMS["total"] = time.Since(start).Milliseconds()
			return evidenceFromCache(cached), diag, nil
		}
	}

	stepStart := time.Now()
	candidates, err := r.collector.Collect(ctx, variants, contract.ScopeFilter{
		SubjectID: scope.SubjectID,
		UnitID:    scope.UnitID,
		TopicID:   scope.TopicID,
	})
	if err != nil {
		return nil, diag, err
	}
	diag.TimingsMS["vector_search"] = time.Since(stepStart).Milliseconds()
	diag.CandidateFlow["collected"] = len(candidates)
	if len(candidates) == 0 {
		return &store.EvidenceSet{}, diag, nil
	}

	// Relaxation keys off the caller's n so a large request is not starved
	// by the strict thresholds.
	minSurvivors := n
	if minSurvivors < r.params.MinNoiseSurvivors {
		minSurvivors = r.params.MinNoiseSurvivors
	}
	candidates = FilterNoise(candidates, minSurvivors)
	diag.CandidateFlow["after_noise"] = len(candidates)

	stepStart = time.Now()
	r.scoreLexical(variants, candidates)
	FuseScores(candidates, r.params.FusionAlpha)
	ApplyUsagePenalty(candidates, usage, r.params.UsagePenaltyRate)
	SortByFusedScore(candidates)
	diag.TimingsMS["lexical_fusion"] = time.Since(stepStart).Milliseconds()

	stepStart = time.Now()
	diag.RerankerUsed = r.rerankTop(ctx, primaryQuery, candidates)
	if diag.RerankerUsed {
		SortByFusedScore(candidates)
		diag.TimingsMS["rerank"] = time.Since(stepStart).Milliseconds()
	}

	stepStart = time.Now()
	selected := SelectMMR(candidates, n, r.params.MMRLambdaFinal)
	diag.CandidateFlow["after_mmr"] = len(selected)
	selected = GroupByLocality(selected)
	diag.TimingsMS["mmr_locality"] = time.Since(stepStart).Milliseconds()
	diag.Materials = materialSpread(selected)

	evidence := &store.EvidenceSet{Candidates: make([]*store.Candidate, len(selected))}
	for i := range selected {
		c := selected[i]
		evidence.Candidates[i] = &c
	}

	if len(usage) == 0 {
		r.cache.CacheRetrieval(ctx, scope, primaryQuery, &cache.CachedRetrieval{
			Chunks:   evidence.Texts(),
			ChunkIDs: evidence.ChunkIDs(),
		})
	}

	diag.TimingsMS["total"] = time.Since(start).Milliseconds()
	r.log.Info("retrieval", "evidence selected", map[string]interface{}{
		"scope":      scope.Key(),
		"selected":   len(evidence.Candidates),
		"collected":  diag.CandidateFlow["collected"],
		"reranked":   diag.RerankerUsed,
		"elapsed_ms": diag.TimingsMS["total"],
	})
	return evidence, diag, nil
}

// scoreLexical rescoring uses a combined query drawn from the highest
// weighted variants so lexical overlap reflects the whole intent.
func (r *Retriever) scoreLexical(variants []store.QueryVariant, candidates []store.Candidate) {
	parts := make([]string, 0, 4)
	for i, v := range variants {
		if i == 4 {
			break
		}
		parts = append(parts, v.Text)
	}
	combined := strings.Join(parts, " ")

	corpus := make([]string, len(candidates))
	for i, c := range candidates {
		corpus[i] = c.Document
	}
	scores := NewBM25Scorer(corpus).ScoreNormalized(combined)
	for i := range candidates {
		candidates[i].LexicalScore = scores[i]
	}
}

// rerankTop rescores the head of the ranking with the cross-encoder and
// replaces fused scores with min-max normalized relevance. Reranker
// unavailability is a silent no-op; the fused ranking stands.
func (r *Retriever) rerankTop(ctx context.Context, query string, candidates []store.Candidate) bool {
	if r.reranker == nil || len(candidates) < rerankMinPool {
		return false
	}
	top := candidates
	if len(top) > r.params.RerankTopK {
		top = top[:r.params.RerankTopK]
	}
	docs := make([]string, len(top))
	for i, c := range top {
		docs[i] = c.Document
	}
	scores, err := r.reranker.Score(ctx, query, docs)
	if err != nil || len(scores) != len(top) {
		if err != nil {
			r.log.Warn("retrieval", "reranker unavailable, keeping fused ranking", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return false
	}

	minS, maxS := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		minS = math.Min(minS, s)
		maxS = math.Max(maxS, s)
	}
	// Candidates beyond the rerank window keep their fused scores and
	// compete with the normalized head on re-sort.
	span := maxS - minS
	for i := range top {
		if span > 0 {
			top[i].FusedScore = (scores[i] - minS) / span
		} else {
			top[i].FusedScore = 1
		}
	}
	return true
}

func evidenceFromCache(cached *cache.CachedRetrieval) *store.EvidenceSet {
	out := &store.EvidenceSet{Candidates: make([]*store.Candidate, len(cached.Chunks))}
	for i := range cached.Chunks {
		out.Candidates[i] = &store.Candidate{
			ChunkID:  cached.ChunkIDs[i],
			Document: cached.Chunks[i],
		}
	}
	return out
}
