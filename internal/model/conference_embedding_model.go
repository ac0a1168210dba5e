package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConferenceEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConferenceId   uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntityType     string          `gorm:"type:varchar(50);not null;index"`
	EntityId       string          `gorm:"type:varchar(100);not null;index"`
	FacetKey       *string         `gorm:"type:varchar(100);index"` // NULL = master (whole-entity) embedding
	Document       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 / nomic-embed-text use 768 dimensions
	Payload        datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (ConferenceEmbedding) TableName() string {
	return "conference_embeddings"
}
