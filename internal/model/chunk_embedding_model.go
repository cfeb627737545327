package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChunkEmbedding struct {
	ChunkId    string          `gorm:"type:varchar(16);primaryKey"` // content hash, stable across re-indexing
	Document   string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)"`
	MaterialId uuid.UUID       `gorm:"type:uuid;not null;index"`
	SubjectId  uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitId     *uuid.UUID      `gorm:"type:uuid;index"`
	TopicId    *uuid.UUID      `gorm:"type:uuid;index"`
	PageStart  int             `gorm:"default:0"`
	PageEnd    int             `gorm:"default:0"`
	Section    string          `gorm:"type:varchar(255)"`
	Position   int             `gorm:"default:0"` // chunk order within the material
	Metadata   datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}
