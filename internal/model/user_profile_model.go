package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserProfile struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_conference"`
	ConferenceId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_conference"`
	Interests    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
