package entity

import (
	"time"

	"github.com/google/uuid"
)

type Faq struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConferenceId uuid.UUID `gorm:"type:uuid;index"`
	Question     string
	Answer       string
	CreatedAt    time.Time
}
