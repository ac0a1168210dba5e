package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-concierge-be/pkg/events"
	"ai-concierge-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type EvaluationService interface {
	Consume(ctx context.Context) error
}

// evaluationService drains completed-turn events off the in-process bus and
// mirrors them to NATS for the offline evaluation workers. Turn handling is
// already done; nothing here can affect the user-visible response.
type evaluationService struct {
	pubSub    *gochannel.GoChannel
	publisher *nats.Publisher
	logger    *log.Logger
}

func NewEvaluationService(pubSub *gochannel.GoChannel, publisher *nats.Publisher, logger *log.Logger) EvaluationService {
	return &evaluationService{
		pubSub:    pubSub,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *evaluationService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, EvaluationTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *evaluationService) processMessage(ctx context.Context, msg *message.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Printf("[EVALUATION] dropping malformed turn event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if s.publisher != nil {
		event := events.BaseEvent{
			Type:       "CONCIERGE_TURN_COMPLETED",
			Data:       payload,
			OccurredAt: time.Now(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			// Evaluation is best-effort; never retry into the hot path.
			s.logger.Printf("[EVALUATION] mirror to NATS failed: %v", err)
		}
	}

	msg.Ack()
}
