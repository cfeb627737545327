package novelty

import (
	"context"

	"github.com/google/uuid"

	"ai-examgen-be/internal/pkg/logger"
	"ai-examgen-be/internal/repository/contract"
	"ai-examgen-be/pkg/cache"
	"ai-examgen-be/pkg/embedding"
	"ai-examgen-be/pkg/store"
)

const (
	// Cosine threshold for the in-session duplicate check.
	DefaultSessionThreshold = 0.85

	// Cosine threshold against the long-lived accepted history. Higher
	// than the session threshold since the history spans many jobs.
	DefaultHistoryThreshold = 0.95

	// Minimum best-match similarity for an output to count as grounded in
	// the indexed material.
	DefaultGroundingThreshold = 0.45
)

// Guard combines the in-session duplicate check, the long-lived novelty
// history and the grounding sanity check.
type Guard struct {
	session  *SessionState
	cache    *cache.TwoTierCache
	embedder embedding.Provider
	repo     contract.ChunkEmbeddingRepository
	log      logger.ILogger

	sessionThreshold   float64
	historyThreshold   float64
	groundingThreshold float64
}

func NewGuard(session *SessionState, c *cache.TwoTierCache, embedder embedding.Provider, repo contract.ChunkEmbeddingRepository, log logger.ILogger) *Guard {
	return &Guard{
		session:            session,
		cache:              c,
		embedder:           embedder,
		repo:               repo,
		log:                log,
		sessionThreshold:   DefaultSessionThreshold,
		historyThreshold:   DefaultHistoryThreshold,
		groundingThreshold: DefaultGroundingThreshold,
	}
}

// WithThresholds overrides the default similarity thresholds. Zero values
// keep the defaults.
func (g *Guard) WithThresholds(session, history, grounding float64) *Guard {
	if session > 0 {
		g.sessionThreshold = session
	}
	if history > 0 {
		g.historyThreshold = history
	}
	if grounding > 0 {
		g.groundingThreshold = grounding
	}
	return g
}

// IsDuplicate checks a candidate text against this session's accepted
// outputs. Embedding failure fails open: the text is treated as unique so
// a degraded embedder never blocks generation.
func (g *Guard) IsDuplicate(ctx context.Context, scope store.Scope, text string) (bool, string) {
	prior := g.session.AcceptedEmbeddings(scope)
	texts := g.session.AcceptedTexts(scope)
	if len(prior) == 0 {
		return false, ""
	}

	emb, err := g.embedder.Generate(ctx, text, embedding.TaskRetrievalQuery)
	if err != nil {
		g.log.Warn("novelty", "embedding unavailable for duplicate check", map[string]interface{}{
			"error": err.Error(),
		})
		return false, ""
	}

	for i, p := range prior {
		if store.CosineSimilarity(emb, p) > g.sessionThreshold {
			of := ""
			if i < len(texts) {
				of = texts[i]
			}
			return true, of
		}
	}
	return false, ""
}

// IsNovel checks a candidate embedding against the long-lived accepted
// history for the scope. Cache unavailability fails open to novel.
func (g *Guard) IsNovel(ctx context.Context, scope store.Scope, emb []float32) bool {
	history := g.cache.GetQuestionEmbeddings(ctx, scope.Key())
	return novelAgainst(emb, history, g.historyThreshold)
}

func novelAgainst(emb []float32, history [][]float32, threshold float64) bool {
	for _, h := range history {
		if store.CosineSimilarity(emb, h) > threshold {
			return false
		}
	}
	return true
}

// IsGrounded re-queries the evidence index with the output's own text and
// checks the best match clears the grounding threshold. Fails open on any
// retrieval or embedding error.
func (g *Guard) IsGrounded(ctx context.Context, subjectID uuid.UUID, text string) bool {
	emb, err := g.embedder.Generate(ctx, text, embedding.TaskRetrievalQuery)
	if err != nil {
		return true
	}
	hits, err := g.repo.SearchSimilarByText(ctx, emb, subjectID, 3)
	if err != nil || len(hits) == 0 {
		return true
	}

	best := hits[0].Score
	for _, h := range hits[1:] {
		if h.Score > best {
			best = h.Score
		}
	}
	return best >= g.groundingThreshold
}

// RegisterOutput records an output in the session state only and returns
// the embedding used. The long-lived history write happens separately so
// accepted outputs, whose QUESTION_ACCEPTED event already carries them to
// the consumer, are written exactly once.
func (g *Guard) RegisterOutput(ctx context.Context, scope store.Scope, text string, usedChunks []store.ChunkID) []float32 {
	emb, err := g.embedder.Generate(ctx, text, embedding.TaskRetrievalDocument)
	if err != nil {
		g.log.Warn("novelty", "could not embed generated question", map[string]interface{}{
			"error": err.Error(),
		})
		emb = nil
	}

	g.session.Register(scope, text, emb, usedChunks)
	return emb
}

// RegisterHistory adds an embedding to the long-lived accepted history.
func (g *Guard) RegisterHistory(ctx context.Context, scope store.Scope, questionID string, emb []float32) {
	if emb == nil {
		return
	}
	g.cache.AddQuestionEmbedding(ctx, scope.Key(), questionID, emb)
}
