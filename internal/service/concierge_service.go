package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-concierge-be/internal/dto"
	"ai-concierge-be/internal/entity"
	"ai-concierge-be/internal/repository/contract"
	"ai-concierge-be/internal/repository/memory"
	"ai-concierge-be/pkg/pipeline"
	"ai-concierge-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// EvaluationTopic is the in-process topic chat turns are published to for
// asynchronous quality evaluation.
const EvaluationTopic = "concierge.turn.completed"

type ConciergeService interface {
	Chat(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error)
	History(ctx context.Context, conversationId string, limit int) (*dto.ConversationHistoryResponse, error)
}

type conciergeService struct {
	orchestrator  *pipeline.Orchestrator
	contextStage  *pipeline.ContextStage
	profiles      contract.UserProfileRepository
	conversations contract.ConversationRepository
	sessions      *memory.SessionRepository
	pubSub        *gochannel.GoChannel
	logger        *log.Logger
}

func NewConciergeService(
	orchestrator *pipeline.Orchestrator,
	contextStage *pipeline.ContextStage,
	profiles contract.UserProfileRepository,
	conversations contract.ConversationRepository,
	sessions *memory.SessionRepository,
	pubSub *gochannel.GoChannel,
	logger *log.Logger,
) ConciergeService {
	return &conciergeService{
		orchestrator:  orchestrator,
		contextStage:  contextStage,
		profiles:      profiles,
		conversations: conversations,
		sessions:      sessions,
		pubSub:        pubSub,
		logger:        logger,
	}
}

func (s *conciergeService) Chat(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	state := &pipeline.TurnState{
		Message:        req.Message,
		UserID:         userId,
		ConversationID: req.ConversationId,
		ConferenceID:   req.ConferenceId.String(),
	}

	state = s.orchestrator.RunTurn(ctx, state)

	s.persistTurn(ctx, userId, req, state)
	s.applyProfileUpdate(ctx, userId, req.ConferenceId, state)
	s.saveSession(req.ConversationId, userId, state)
	s.publishEvaluation(userId, req, state)

	resp := &dto.ChatResponse{
		ConversationId:     req.ConversationId,
		Reply:              state.Response,
		Intent:             state.Intent,
		ReferencedEntities: state.ReferencedEntities,
		Results:            rankedResults(state.Results),
		Degraded:           state.PartialFailure,
		RetryCount:         state.RetryCount,
		CreatedAt:          time.Now(),
	}
	if state.ErrorContext != nil {
		resp.DegradedHint = state.ErrorContext.UserHint
	}
	return resp, nil
}

func (s *conciergeService) History(ctx context.Context, conversationId string, limit int) (*dto.ConversationHistoryResponse, error) {
	messages, err := s.conversations.RecentHistory(ctx, conversationId, limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.HistoryItemDTO, len(messages))
	for i, m := range messages {
		items[i] = dto.HistoryItemDTO{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return &dto.ConversationHistoryResponse{
		ConversationId: conversationId,
		Messages:       items,
	}, nil
}

// persistTurn stores both sides of the exchange. Persistence is best-effort:
// a storage hiccup must not lose the already-computed reply.
func (s *conciergeService) persistTurn(ctx context.Context, userId string, req *dto.ChatRequest, state *pipeline.TurnState) {
	userMsg := &entity.ConversationMessage{
		ConversationId: req.ConversationId,
		UserId:         userId,
		Role:           "user",
		Content:        req.Message,
	}
	if err := s.conversations.Append(ctx, userMsg); err != nil {
		s.logger.Printf("[CONCIERGE] persisting user message failed: %v", err)
	}

	assistantMsg := &entity.ConversationMessage{
		ConversationId: req.ConversationId,
		UserId:         userId,
		Role:           "assistant",
		Content:        state.Response,
	}
	if err := s.conversations.Append(ctx, assistantMsg); err != nil {
		s.logger.Printf("[CONCIERGE] persisting assistant message failed: %v", err)
	}
}

func (s *conciergeService) applyProfileUpdate(ctx context.Context, userId string, conferenceId uuid.UUID, state *pipeline.TurnState) {
	if len(state.ProfileUpdate) == 0 {
		return
	}
	if err := s.profiles.MergeInterests(ctx, userId, conferenceId, state.ProfileUpdate); err != nil {
		s.logger.Printf("[CONCIERGE] profile update failed: %v", err)
		return
	}
	// Drop the cached snapshot so the next turn sees the new interests.
	s.contextStage.InvalidateProfile(ctx, userId, conferenceId.String())
}

func (s *conciergeService) saveSession(conversationId, userId string, state *pipeline.TurnState) {
	targets := make([]store.EntityType, 0, len(state.Results))
	for _, target := range store.AllEntityTypes {
		if len(state.Results[target]) > 0 {
			targets = append(targets, target)
		}
	}
	s.sessions.Save(&store.Session{
		ID:          conversationId,
		UserID:      userId,
		LastIntent:  state.Intent,
		LastTargets: targets,
		LastQuery:   state.Message,
	})
}

// publishEvaluation hands the finished turn to the evaluation consumer
// without blocking the response path.
func (s *conciergeService) publishEvaluation(userId string, req *dto.ChatRequest, state *pipeline.TurnState) {
	payload := map[string]interface{}{
		"conversation_id": req.ConversationId,
		"conference_id":   req.ConferenceId.String(),
		"user_id":         userId,
		"message":         req.Message,
		"reply":           state.Response,
		"intent":          state.Intent,
		"degraded":        state.PartialFailure,
		"failed_stage":    state.FailedStage,
		"retry_count":     state.RetryCount,
		"result_count":    len(state.ReferencedEntities),
		"completed_at":    time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Printf("[CONCIERGE] marshal evaluation payload failed: %v", err)
		return
	}
	if err := s.pubSub.Publish(EvaluationTopic, message.NewMessage(watermill.NewUUID(), raw)); err != nil {
		s.logger.Printf("[CONCIERGE] evaluation publish failed: %v", err)
	}
}

func rankedResults(results map[store.EntityType][]store.SearchResult) []dto.RankedResultDTO {
	var out []dto.RankedResultDTO
	for _, target := range store.AllEntityTypes {
		for _, r := range results[target] {
			out = append(out, dto.RankedResultDTO{
				EntityId:     r.EntityID,
				EntityType:   string(r.EntityType),
				Score:        r.Score,
				FacetMatches: r.FacetMatches,
				Payload:      r.Payload,
			})
		}
	}
	return out
}
