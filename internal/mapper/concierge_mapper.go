package mapper

import (
	"encoding/json"
	"time"

	"ai-concierge-be/internal/entity"
	"ai-concierge-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConferenceEmbeddingMapper struct{}

func NewConferenceEmbeddingMapper() *ConferenceEmbeddingMapper {
	return &ConferenceEmbeddingMapper{}
}

func (m *ConferenceEmbeddingMapper) ToEntity(e *model.ConferenceEmbedding) *entity.ConferenceEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var payload map[string]interface{}
	if len(e.Payload) > 0 {
		// Malformed payloads degrade to nil rather than failing the read.
		_ = json.Unmarshal(e.Payload, &payload)
	}

	return &entity.ConferenceEmbedding{
		Id:             e.Id,
		ConferenceId:   e.ConferenceId,
		EntityType:     e.EntityType,
		EntityId:       e.EntityId,
		FacetKey:       e.FacetKey,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		Payload:        payload,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *ConferenceEmbeddingMapper) ToModel(e *entity.ConferenceEmbedding) *model.ConferenceEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var payload datatypes.JSON
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err == nil {
			payload = raw
		}
	}

	out := &model.ConferenceEmbedding{
		Id:             e.Id,
		ConferenceId:   e.ConferenceId,
		EntityType:     e.EntityType,
		EntityId:       e.EntityId,
		FacetKey:       e.FacetKey,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		Payload:        payload,
		CreatedAt:      e.CreatedAt,
		DeletedAt:      deletedAt,
	}
	if e.UpdatedAt != nil {
		out.UpdatedAt = *e.UpdatedAt
	}
	return out
}

type UserProfileMapper struct{}

func NewUserProfileMapper() *UserProfileMapper {
	return &UserProfileMapper{}
}

func (m *UserProfileMapper) ToEntity(e *model.UserProfile) *entity.UserProfile {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var interests map[string]interface{}
	if len(e.Interests) > 0 {
		_ = json.Unmarshal(e.Interests, &interests)
	}

	return &entity.UserProfile{
		Id:           e.Id,
		UserId:       e.UserId,
		ConferenceId: e.ConferenceId,
		Interests:    interests,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *UserProfileMapper) ToModel(e *entity.UserProfile) *model.UserProfile {
	if e == nil {
		return nil
	}

	var interests datatypes.JSON
	if e.Interests != nil {
		raw, err := json.Marshal(e.Interests)
		if err == nil {
			interests = raw
		}
	}

	out := &model.UserProfile{
		Id:           e.Id,
		UserId:       e.UserId,
		ConferenceId: e.ConferenceId,
		Interests:    interests,
		CreatedAt:    e.CreatedAt,
	}
	if e.UpdatedAt != nil {
		out.UpdatedAt = *e.UpdatedAt
	}
	return out
}

type ConversationMessageMapper struct{}

func NewConversationMessageMapper() *ConversationMessageMapper {
	return &ConversationMessageMapper{}
}

func (m *ConversationMessageMapper) ToEntity(e *model.ConversationMessage) *entity.ConversationMessage {
	if e == nil {
		return nil
	}
	return &entity.ConversationMessage{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		UserId:         e.UserId,
		Role:           e.Role,
		Content:        e.Content,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ConversationMessageMapper) ToModel(e *entity.ConversationMessage) *model.ConversationMessage {
	if e == nil {
		return nil
	}
	return &model.ConversationMessage{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		UserId:         e.UserId,
		Role:           e.Role,
		Content:        e.Content,
		CreatedAt:      e.CreatedAt,
	}
}

type FaqMapper struct{}

func NewFaqMapper() *FaqMapper {
	return &FaqMapper{}
}

func (m *FaqMapper) ToEntity(e *model.Faq) *entity.Faq {
	if e == nil {
		return nil
	}
	return &entity.Faq{
		Id:           e.Id,
		ConferenceId: e.ConferenceId,
		Question:     e.Question,
		Answer:       e.Answer,
		CreatedAt:    e.CreatedAt,
	}
}

func (m *FaqMapper) ToModel(e *entity.Faq) *model.Faq {
	if e == nil {
		return nil
	}
	return &model.Faq{
		Id:           e.Id,
		ConferenceId: e.ConferenceId,
		Question:     e.Question,
		Answer:       e.Answer,
		CreatedAt:    e.CreatedAt,
	}
}
