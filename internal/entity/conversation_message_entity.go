package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMessage struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId string
	UserId         string
	Role           string
	Content        string
	CreatedAt      time.Time
}
