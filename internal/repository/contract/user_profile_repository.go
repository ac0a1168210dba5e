package contract

import (
	"context"

	"ai-concierge-be/internal/entity"

	"github.com/google/uuid"
)

type UserProfileRepository interface {
	FindByUser(ctx context.Context, userId string, conferenceId uuid.UUID) (*entity.UserProfile, error)
	Upsert(ctx context.Context, profile *entity.UserProfile) error
	// MergeInterests folds a partial interests update into the stored profile,
	// creating the profile when it does not exist yet.
	MergeInterests(ctx context.Context, userId string, conferenceId uuid.UUID, update map[string]interface{}) error
}
