package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId       string
	ConferenceId uuid.UUID `gorm:"type:uuid;index"`
	Interests    map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
