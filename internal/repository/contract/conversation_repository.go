package contract

import (
	"context"

	"ai-concierge-be/internal/entity"
)

type ConversationRepository interface {
	Append(ctx context.Context, message *entity.ConversationMessage) error
	// RecentHistory returns up to limit prior messages for a conversation,
	// ordered oldest-first.
	RecentHistory(ctx context.Context, conversationId string, limit int) ([]*entity.ConversationMessage, error)
}
