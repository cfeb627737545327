package implementation

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"ai-examgen-be/internal/entity"
	"ai-examgen-be/internal/mapper"
	"ai-examgen-be/internal/model"
	"ai-examgen-be/internal/repository/contract"
	"ai-examgen-be/internal/repository/specification"
)

type ChunkEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkEmbeddingRepository(db *gorm.DB) contract.ChunkEmbeddingRepository {
	return &ChunkEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func scopeSpecs(scope contract.ScopeFilter) []specification.Specification {
	specs := []specification.Specification{specification.BySubjectID{SubjectID: scope.SubjectID}}
	if scope.UnitID != nil {
		specs = append(specs, specification.ByUnitID{UnitID: *scope.UnitID})
	}
	if scope.TopicID != nil {
		specs = append(specs, specification.ByTopicID{TopicID: *scope.TopicID})
	}
	return specs
}

func (r *ChunkEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, queryEmbedding []float32, scope contract.ScopeFilter, limit int) ([]contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so the score
	// column is already a similarity in [0, 1] for normalized vectors.
	type result struct {
		model.ChunkEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(queryEmbedding)
	query := r.db.WithContext(ctx).
		Table("chunk_embeddings").
		Select("chunk_embeddings.*, 1 - (embedding <=> ?) as similarity", queryVector)
	for _, spec := range scopeSpecs(scope) {
		query = spec.Apply(query)
	}
	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = contract.ScoredChunk{
			Chunk: *r.mapper.ToEntity(&res.ChunkEmbedding),
			Score: res.Similarity,
		}
	}
	return scored, nil
}

func (r *ChunkEmbeddingRepositoryImpl) SearchSimilarByText(ctx context.Context, queryEmbedding []float32, subjectID uuid.UUID, limit int) ([]contract.ScoredChunk, error) {
	return r.SearchSimilarWithScore(ctx, queryEmbedding, contract.ScopeFilter{SubjectID: subjectID}, limit)
}

func (r *ChunkEmbeddingRepositoryImpl) Create(ctx context.Context, chunk *entity.ChunkEmbedding) error {
	m := r.mapper.ToModel(chunk)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChunkEmbeddingRepositoryImpl) CreateBatch(ctx context.Context, chunks []entity.ChunkEmbedding) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]*model.ChunkEmbedding, len(chunks))
	for i := range chunks {
		models[i] = r.mapper.ToModel(&chunks[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

func (r *ChunkEmbeddingRepositoryImpl) CountBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChunkEmbedding{}).
		Where("subject_id = ?", subjectID).
		Count(&count).Error
	return count, err
}

func (r *ChunkEmbeddingRepositoryImpl) DeleteByMaterial(ctx context.Context, materialID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Delete(&model.ChunkEmbedding{}).Error
}
