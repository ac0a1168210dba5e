package contract

import (
	"context"

	"ai-concierge-be/internal/entity"
	"ai-concierge-be/pkg/store"

	"github.com/google/uuid"
)

type ConferenceEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.ConferenceEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.ConferenceEmbedding) error
	DeleteByEntity(ctx context.Context, conferenceId uuid.UUID, entityType string, entityId string) error
	DeleteByConferenceId(ctx context.Context, conferenceId uuid.UUID) error
	// SearchFaceted runs a cosine-similarity search scoped to one conference
	// and one facet sub-index. An empty facetKey targets the master
	// (whole-entity) embeddings where facet_key IS NULL.
	SearchFaceted(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, facetKey string, limit int) ([]store.ScoredHit, error)
}
