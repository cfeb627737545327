package contract

import (
	"context"

	"github.com/google/uuid"

	"ai-examgen-be/internal/entity"
)

// ScopeFilter narrows a similarity search to a syllabus scope. TopicID is
// the tightest scope; nil fields widen the search.
type ScopeFilter struct {
	SubjectID uuid.UUID
	UnitID    *uuid.UUID
	TopicID   *uuid.UUID
}

// ScoredChunk is a chunk entity paired with its cosine similarity to the
// query embedding.
type ScoredChunk struct {
	Chunk entity.ChunkEmbedding
	Score float64
}

type ChunkEmbeddingRepository interface {
	// SearchSimilarWithScore returns up to limit chunks in the scope ordered
	// by descending cosine similarity to queryEmbedding.
	SearchSimilarWithScore(ctx context.Context, queryEmbedding []float32, scope ScopeFilter, limit int) ([]ScoredChunk, error)

	// SearchSimilarByText looks up chunks most similar to an arbitrary
	// embedding across the subject, used for grounding checks.
	SearchSimilarByText(ctx context.Context, queryEmbedding []float32, subjectID uuid.UUID, limit int) ([]ScoredChunk, error)

	Create(ctx context.Context, chunk *entity.ChunkEmbedding) error
	CreateBatch(ctx context.Context, chunks []entity.ChunkEmbedding) error
	CountBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error)
	DeleteByMaterial(ctx context.Context, materialID uuid.UUID) error
}
