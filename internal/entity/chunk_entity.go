package entity

import (
	"github.com/google/uuid"
)

// ChunkEmbedding is the domain view of one embedded material chunk.
type ChunkEmbedding struct {
	ChunkID    string
	MaterialID uuid.UUID
	SubjectID  uuid.UUID
	UnitID     *uuid.UUID
	TopicID    *uuid.UUID
	Document   string
	Embedding  []float32
	PageStart  int
	PageEnd    int
	Section    string
	Position   int
}
