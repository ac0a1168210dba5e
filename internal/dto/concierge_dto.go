package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatRequest struct {
	ConversationId string    `json:"conversation_id" validate:"required,max=100"`
	ConferenceId   uuid.UUID `json:"conference_id" validate:"required"`
	Message        string    `json:"message" validate:"required,max=2000"`
}

type ChatResponse struct {
	ConversationId     string            `json:"conversation_id"`
	Reply              string            `json:"reply"`
	Intent             string            `json:"intent,omitempty"`
	ReferencedEntities []string          `json:"referenced_entities,omitempty"`
	Results            []RankedResultDTO `json:"results,omitempty"`
	Degraded           bool              `json:"degraded"`
	DegradedHint       string            `json:"degraded_hint,omitempty"`
	RetryCount         int               `json:"retry_count"`
	CreatedAt          time.Time         `json:"created_at"`
}

type RankedResultDTO struct {
	EntityId     string                 `json:"entity_id"`
	EntityType   string                 `json:"entity_type"`
	Score        float64                `json:"score"`
	FacetMatches int                    `json:"facet_matches"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

type ConversationHistoryResponse struct {
	ConversationId string           `json:"conversation_id"`
	Messages       []HistoryItemDTO `json:"messages"`
}

type HistoryItemDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
