package mapper

import (
	"github.com/pgvector/pgvector-go"

	"ai-examgen-be/internal/entity"
	"ai-examgen-be/internal/model"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.ChunkEmbedding) *entity.ChunkEmbedding {
	if c == nil {
		return nil
	}
	return &entity.ChunkEmbedding{
		ChunkID:    c.ChunkId,
		MaterialID: c.MaterialId,
		SubjectID:  c.SubjectId,
		UnitID:     c.UnitId,
		TopicID:    c.TopicId,
		Document:   c.Document,
		Embedding:  c.Embedding.Slice(),
		PageStart:  c.PageStart,
		PageEnd:    c.PageEnd,
		Section:    c.Section,
		Position:   c.Position,
	}
}

func (m *ChunkMapper) ToModel(e *entity.ChunkEmbedding) *model.ChunkEmbedding {
	if e == nil {
		return nil
	}
	return &model.ChunkEmbedding{
		ChunkId:    e.ChunkID,
		Document:   e.Document,
		Embedding:  pgvector.NewVector(e.Embedding),
		MaterialId: e.MaterialID,
		SubjectId:  e.SubjectID,
		UnitId:     e.UnitID,
		TopicId:    e.TopicID,
		PageStart:  e.PageStart,
		PageEnd:    e.PageEnd,
		Section:    e.Section,
		Position:   e.Position,
	}
}
