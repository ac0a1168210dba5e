package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"ai-concierge-be/pkg/cache"
	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/store"
)

const (
	profileCacheNamespace = "profile"
	profileCacheTTL       = 5 * time.Minute
	historyFetchLimit     = 10
)

// ProfileStore is the best-effort user profile port. Absence of a profile is
// not an error: implementations return an empty map.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID, conferenceID string) (map[string]interface{}, error)
	UpdateProfile(ctx context.Context, userID, conferenceID string, updates map[string]interface{}) error
}

// HistoryStore returns prior conversation turns, oldest-first.
type HistoryStore interface {
	GetHistory(ctx context.Context, conversationID string, limit int) ([]store.ConversationTurn, error)
}

// ContextStage fetches the profile snapshot and conversation history
// concurrently. Either fetch failing degrades that half to empty rather than
// failing the stage; the profile path is cached and breaker-guarded.
type ContextStage struct {
	profiles ProfileStore
	history  HistoryStore
	cache    *cache.Cache
	breaker  *resilience.CircuitBreaker
	logger   *log.Logger
}

func NewContextStage(profiles ProfileStore, history HistoryStore, c *cache.Cache, breakers *resilience.BreakerRegistry, logger *log.Logger) *ContextStage {
	return &ContextStage{
		profiles: profiles,
		history:  history,
		cache:    c,
		breaker:  breakers.Get("profile_store"),
		logger:   logger,
	}
}

func (s *ContextStage) Name() string { return StageFetchContext }

func (s *ContextStage) Run(ctx context.Context, state *TurnState) (*Update, error) {
	var (
		wg      sync.WaitGroup
		profile map[string]interface{}
		history []store.ConversationTurn
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		profile = s.fetchProfile(ctx, state.UserID, state.ConferenceID)
	}()
	go func() {
		defer wg.Done()
		turns, err := s.history.GetHistory(ctx, state.ConversationID, historyFetchLimit)
		if err != nil {
			s.logger.Printf("[CONTEXT] history fetch failed, continuing without it: %v", err)
			return
		}
		history = turns
	}()
	wg.Wait()

	if profile == nil {
		profile = map[string]interface{}{}
	}
	if history == nil {
		history = []store.ConversationTurn{}
	}
	return &Update{Profile: profile, History: history}, nil
}

func (s *ContextStage) fetchProfile(ctx context.Context, userID, conferenceID string) map[string]interface{} {
	key := cache.Key(profileCacheNamespace, userID, conferenceID)

	var profile map[string]interface{}
	if s.cache.Get(ctx, key, &profile) {
		return profile
	}

	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		profile, callErr = s.profiles.GetProfile(ctx, userID, conferenceID)
		return resilience.WrapCall("profile_store", callErr)
	})
	if err != nil {
		s.logger.Printf("[CONTEXT] profile fetch failed, continuing without it: %v", err)
		return nil
	}

	s.cache.Set(ctx, key, profile, profileCacheTTL)
	return profile
}

// InvalidateProfile drops the cached profile snapshot after a write so the
// next turn sees the update.
func (s *ContextStage) InvalidateProfile(ctx context.Context, userID, conferenceID string) {
	s.cache.Delete(ctx, cache.Key(profileCacheNamespace, userID, conferenceID))
}
