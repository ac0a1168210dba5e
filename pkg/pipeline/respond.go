package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-concierge-be/pkg/llm"
	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/store"
)

// FaqStore resolves a planner-selected FAQ id to its canonical answer.
// A miss returns empty without error.
type FaqStore interface {
	GetAnswer(ctx context.Context, faqID string) (string, error)
}

// RespondStage phrases the final answer. FAQ hits short-circuit the model
// call; otherwise the generator is grounded on ranked results and, when the
// turn degraded, on the error context's user-safe hint.
type RespondStage struct {
	provider llm.LLMProvider
	faqs     FaqStore
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryOptions
	logger   *log.Logger
}

func NewRespondStage(provider llm.LLMProvider, faqs FaqStore, breakers *resilience.BreakerRegistry, logger *log.Logger) *RespondStage {
	return &RespondStage{
		provider: provider,
		faqs:     faqs,
		breaker:  breakers.Get("llm_responder"),
		retry:    resilience.DefaultRetryOptions(),
		logger:   logger,
	}
}

func (s *RespondStage) Name() string { return StageRespond }

func (s *RespondStage) Run(ctx context.Context, state *TurnState) (*Update, error) {
	if state.FaqID != "" && s.faqs != nil {
		answer, err := s.faqs.GetAnswer(ctx, state.FaqID)
		if err != nil {
			s.logger.Printf("[RESPOND] faq %s lookup failed, falling back to generation: %v", state.FaqID, err)
		} else if answer != "" {
			return &Update{Response: strptr(answer)}, nil
		}
	}

	prompt := buildResponderPrompt(state)

	var raw string
	err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			raw, callErr = s.provider.Generate(ctx, prompt, llm.WithTemperature(0.7))
			return resilience.WrapCall("llm_responder", callErr)
		})
	})
	if err != nil {
		return nil, err
	}

	response := strings.TrimSpace(raw)
	if response == "" {
		return nil, &resilience.CallError{
			Kind:       resilience.KindData,
			Dependency: "llm_responder",
			Cause:      fmt.Errorf("empty response from model"),
		}
	}

	return &Update{
		Response:           strptr(response),
		ReferencedEntities: referencedEntities(state.Results),
	}, nil
}

// referencedEntities collects the ids of every result surfaced to the
// generator, per-target order then rank order.
func referencedEntities(results map[store.EntityType][]store.SearchResult) []string {
	var ids []string
	for _, target := range store.AllEntityTypes {
		for _, r := range results[target] {
			ids = append(ids, r.EntityID)
		}
	}
	return ids
}

func buildResponderPrompt(state *TurnState) string {
	var b strings.Builder
	b.WriteString("You are a friendly conference concierge. Answer the attendee's question using ONLY the retrieved records below. ")
	b.WriteString("Never mention internal systems or errors beyond the provided hint. Be concise.\n\n")

	if len(state.Profile) > 0 {
		profileJSON, err := json.Marshal(state.Profile)
		if err == nil {
			b.WriteString("Attendee profile: ")
			b.Write(profileJSON)
			b.WriteString("\n")
		}
	}
	if len(state.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range state.History {
			b.WriteString(fmt.Sprintf("- %s: %s\n", turn.Role, turn.Content))
		}
	}

	wroteResults := false
	for _, target := range store.AllEntityTypes {
		results := state.Results[target]
		if len(results) == 0 {
			continue
		}
		wroteResults = true
		b.WriteString(fmt.Sprintf("\nRetrieved %s:\n", target))
		for _, r := range results {
			payloadJSON, err := json.Marshal(r.Payload)
			if err != nil {
				payloadJSON = []byte("{}")
			}
			b.WriteString(fmt.Sprintf("- id=%s score=%.2f %s\n", r.EntityID, r.Score, payloadJSON))
		}
	}
	if !wroteResults && !state.DirectResponse {
		b.WriteString("\nNo records matched the search. Say so honestly and suggest rephrasing.\n")
	}

	if ec := state.ErrorContext; ec != nil {
		b.WriteString("\nPart of the lookup degraded. Work this into the answer naturally: ")
		b.WriteString(ec.UserHint)
		if ec.RetrySuggestion != "" {
			b.WriteString(" ")
			b.WriteString(ec.RetrySuggestion)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nAttendee message: ")
	b.WriteString(state.Message)
	return b.String()
}
