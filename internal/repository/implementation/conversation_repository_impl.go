package implementation

import (
	"context"

	"ai-concierge-be/internal/entity"
	"ai-concierge-be/internal/mapper"
	"ai-concierge-be/internal/model"
	"ai-concierge-be/internal/repository/contract"

	"gorm.io/gorm"
)

type ConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMessageMapper
}

func NewConversationRepository(db *gorm.DB) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMessageMapper(),
	}
}

func (r *ConversationRepositoryImpl) Append(ctx context.Context, message *entity.ConversationMessage) error {
	m := r.mapper.ToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConversationRepositoryImpl) RecentHistory(ctx context.Context, conversationId string, limit int) ([]*entity.ConversationMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	var models []*model.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	// Reverse so callers get oldest-first history.
	messages := make([]*entity.ConversationMessage, len(models))
	for i, m := range models {
		messages[len(models)-1-i] = r.mapper.ToEntity(m)
	}
	return messages, nil
}
