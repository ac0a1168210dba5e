package contract

import (
	"context"

	"ai-concierge-be/internal/entity"

	"github.com/google/uuid"
)

type FaqRepository interface {
	FindById(ctx context.Context, id uuid.UUID) (*entity.Faq, error)
	FindByConferenceId(ctx context.Context, conferenceId uuid.UUID) ([]*entity.Faq, error)
}
