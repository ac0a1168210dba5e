package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConferenceEmbedding struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConferenceId   uuid.UUID `gorm:"type:uuid;index"`
	EntityType     string
	EntityId       string
	FacetKey       *string // nil = master (whole-entity) embedding
	Document       string
	EmbeddingValue []float32
	Payload        map[string]interface{}
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
