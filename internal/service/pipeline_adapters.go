package service

import (
	"context"
	"fmt"

	"ai-concierge-be/internal/repository/contract"
	"ai-concierge-be/pkg/pipeline"
	"ai-concierge-be/pkg/store"

	"github.com/google/uuid"
)

// Adapters bridging the pipeline's ports onto the repository layer.

type profileStoreAdapter struct {
	repo contract.UserProfileRepository
}

func NewProfileStoreAdapter(repo contract.UserProfileRepository) pipeline.ProfileStore {
	return &profileStoreAdapter{repo: repo}
}

func (a *profileStoreAdapter) GetProfile(ctx context.Context, userID, conferenceID string) (map[string]interface{}, error) {
	conferenceUUID, err := uuid.Parse(conferenceID)
	if err != nil {
		return nil, fmt.Errorf("invalid conference id %q: %w", conferenceID, err)
	}

	profile, err := a.repo.FindByUser(ctx, userID, conferenceUUID)
	if err != nil {
		return nil, err
	}
	// Absence of a profile is not an error.
	if profile == nil || profile.Interests == nil {
		return map[string]interface{}{}, nil
	}
	return profile.Interests, nil
}

func (a *profileStoreAdapter) UpdateProfile(ctx context.Context, userID, conferenceID string, updates map[string]interface{}) error {
	conferenceUUID, err := uuid.Parse(conferenceID)
	if err != nil {
		return fmt.Errorf("invalid conference id %q: %w", conferenceID, err)
	}
	return a.repo.MergeInterests(ctx, userID, conferenceUUID, updates)
}

type historyStoreAdapter struct {
	repo contract.ConversationRepository
}

func NewHistoryStoreAdapter(repo contract.ConversationRepository) pipeline.HistoryStore {
	return &historyStoreAdapter{repo: repo}
}

func (a *historyStoreAdapter) GetHistory(ctx context.Context, conversationID string, limit int) ([]store.ConversationTurn, error) {
	messages, err := a.repo.RecentHistory(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}

	turns := make([]store.ConversationTurn, len(messages))
	for i, m := range messages {
		turns[i] = store.ConversationTurn{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return turns, nil
}

type faqStoreAdapter struct {
	repo contract.FaqRepository
}

func NewFaqStoreAdapter(repo contract.FaqRepository) pipeline.FaqStore {
	return &faqStoreAdapter{repo: repo}
}

func (a *faqStoreAdapter) GetAnswer(ctx context.Context, faqID string) (string, error) {
	id, err := uuid.Parse(faqID)
	if err != nil {
		// The planner sometimes hallucinates ids; treat them as misses.
		return "", nil
	}

	faq, err := a.repo.FindById(ctx, id)
	if err != nil {
		return "", err
	}
	if faq == nil {
		return "", nil
	}
	return faq.Answer, nil
}
