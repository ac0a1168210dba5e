package implementation

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-concierge-be/internal/entity"
	"ai-concierge-be/internal/mapper"
	"ai-concierge-be/internal/model"
	"ai-concierge-be/internal/repository/contract"
	"ai-concierge-be/pkg/store"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ConferenceEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConferenceEmbeddingMapper
}

func NewConferenceEmbeddingRepository(db *gorm.DB) contract.ConferenceEmbeddingRepository {
	return &ConferenceEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewConferenceEmbeddingMapper(),
	}
}

func (r *ConferenceEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.ConferenceEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConferenceEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.ConferenceEmbedding) error {
	models := make([]*model.ConferenceEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = r.mapper.ToModel(e)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	// Update IDs back to entities
	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ConferenceEmbeddingRepositoryImpl) DeleteByEntity(ctx context.Context, conferenceId uuid.UUID, entityType string, entityId string) error {
	return r.db.WithContext(ctx).
		Where("conference_id = ? AND entity_type = ? AND entity_id = ?", conferenceId, entityType, entityId).
		Delete(&model.ConferenceEmbedding{}).Error
}

func (r *ConferenceEmbeddingRepositoryImpl) DeleteByConferenceId(ctx context.Context, conferenceId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("conference_id = ?", conferenceId).
		Delete(&model.ConferenceEmbedding{}).Error
}

func (r *ConferenceEmbeddingRepositoryImpl) SearchFaceted(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, facetKey string, limit int) ([]store.ScoredHit, error) {
	if limit <= 0 {
		limit = 5
	}

	conferenceUUID, err := uuid.Parse(conferenceID)
	if err != nil {
		return nil, fmt.Errorf("invalid conference id %q: %w", conferenceID, err)
	}

	// Raw query to get similarity score along with payloads.
	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding_value <=> query_vector) = cosine_similarity
	type result struct {
		EntityId   string
		FacetKey   *string
		Payload    []byte
		Similarity float64
	}
	var results []result

	vec := pgvector.NewVector(queryVector)

	query := r.db.WithContext(ctx).
		Table("conference_embeddings").
		Select("entity_id, facet_key, payload, 1 - (embedding_value <=> ?) as similarity", vec).
		Where("conference_id = ?", conferenceUUID).
		Where("entity_type = ?", string(entityType)).
		Where("deleted_at IS NULL")

	if facetKey == "" {
		query = query.Where("facet_key IS NULL")
	} else {
		query = query.Where("facet_key = ?", facetKey)
	}

	err = query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	hits := make([]store.ScoredHit, 0, len(results))
	for _, res := range results {
		var payload map[string]interface{}
		if len(res.Payload) > 0 {
			_ = json.Unmarshal(res.Payload, &payload)
		}
		hit := store.ScoredHit{
			EntityID:   res.EntityId,
			Similarity: res.Similarity,
			Payload:    payload,
		}
		if res.FacetKey != nil {
			hit.FacetKey = *res.FacetKey
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
