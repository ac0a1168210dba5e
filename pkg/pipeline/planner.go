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

const (
	defaultQueryLimit = 5
	maxQueryLimit     = 20
	maxPlannedQueries = 8
)

// ActionPlan is the JSON contract the planning model must honor.
type ActionPlan struct {
	Intent         string  `json:"intent"`
	DirectResponse bool    `json:"direct_response"`
	FaqID          *string `json:"faq_id"`
	QueryMode      *string `json:"query_mode"`
	Queries        []struct {
		Table      string `json:"table"`
		QueryText  string `json:"query_text"`
		SearchMode string `json:"search_mode"`
		Limit      int    `json:"limit"`
	} `json:"queries"`
	ProfileUpdate struct {
		NeedsUpdate bool                   `json:"needs_update"`
		Updates     map[string]interface{} `json:"updates"`
	} `json:"profile_update"`
}

// PlannerStage asks the planning model what to search for and validates its
// answer into immutable PlannedQueries.
type PlannerStage struct {
	provider llm.LLMProvider
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryOptions
	logger   *log.Logger
}

func NewPlannerStage(provider llm.LLMProvider, breakers *resilience.BreakerRegistry, logger *log.Logger) *PlannerStage {
	return &PlannerStage{
		provider: provider,
		breaker:  breakers.Get("llm_planner"),
		retry:    resilience.DefaultRetryOptions(),
		logger:   logger,
	}
}

func (s *PlannerStage) Name() string { return StagePlanQueries }

func (s *PlannerStage) Run(ctx context.Context, state *TurnState) (*Update, error) {
	prompt := buildPlannerPrompt(state)

	var raw string
	err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.breaker.Call(ctx, func(ctx context.Context) error {
			var callErr error
			raw, callErr = s.provider.Generate(ctx, prompt, llm.WithTemperature(0.2))
			return resilience.WrapCall("llm_planner", callErr)
		})
	})
	if err != nil {
		return nil, err
	}

	plan, err := ParseActionPlan(raw)
	if err != nil {
		return nil, err
	}

	queries := plan.PlannedQueries()
	s.logger.Printf("[PLANNER] intent=%s direct=%v queries=%d", plan.Intent, plan.DirectResponse, len(queries))

	update := &Update{
		Intent:         strptr(plan.Intent),
		DirectResponse: boolptr(plan.DirectResponse),
		PlannedQueries: queries,
	}
	if plan.FaqID != nil {
		update.FaqID = strptr(*plan.FaqID)
	}
	if plan.QueryMode != nil {
		update.QueryMode = strptr(*plan.QueryMode)
	}
	if plan.ProfileUpdate.NeedsUpdate && plan.ProfileUpdate.Updates != nil {
		update.ProfileUpdate = plan.ProfileUpdate.Updates
	}
	return update, nil
}

// ParseActionPlan extracts and validates the planner's JSON from a raw model
// response that may carry prose or fencing around it. Malformed plans are a
// data error; individually invalid queries are dropped, not fatal.
func ParseActionPlan(response string) (*ActionPlan, error) {
	payload := extractJSON(response)

	var plan ActionPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, &resilience.CallError{
			Kind:       resilience.KindData,
			Dependency: "llm_planner",
			Cause:      fmt.Errorf("unmarshal action plan: %w", err),
		}
	}

	// Chitchat and direct answers must not trigger searches.
	if plan.DirectResponse {
		plan.Queries = nil
	}
	return &plan, nil
}

// PlannedQueries converts the validated plan into the immutable query list
// the executor consumes. Unknown tables and empty query texts are skipped;
// limits are clamped.
func (p *ActionPlan) PlannedQueries() []store.PlannedQuery {
	queries := make([]store.PlannedQuery, 0, len(p.Queries))
	for _, q := range p.Queries {
		if len(queries) == maxPlannedQueries {
			break
		}
		target, ok := store.ParseEntityType(q.Table)
		if !ok {
			continue
		}
		text := strings.TrimSpace(q.QueryText)
		if text == "" {
			continue
		}
		limit := q.Limit
		if limit <= 0 {
			limit = defaultQueryLimit
		}
		if limit > maxQueryLimit {
			limit = maxQueryLimit
		}
		queries = append(queries, store.PlannedQuery{
			Target:     target,
			QueryText:  text,
			UseFaceted: q.SearchMode != store.SearchModeSpecific,
			Limit:      limit,
		})
	}
	return queries
}

func buildPlannerPrompt(state *TurnState) string {
	var b strings.Builder
	b.WriteString("You plan retrieval for a conference concierge. Entities: sessions, exhibitors, speakers, attendees.\n")
	b.WriteString("Reply with ONLY a JSON object: {\"intent\", \"direct_response\", \"faq_id\", \"query_mode\", \"queries\": [{\"table\", \"query_text\", \"search_mode\", \"limit\"}], \"profile_update\": {\"needs_update\", \"updates\"}}.\n")
	b.WriteString("search_mode is \"faceted\" for vague or recommendation questions, \"specific\" for exact-name lookups.\n")
	b.WriteString("If the message is chitchat or answerable directly, set direct_response true and leave queries empty.\n\n")

	if len(state.Profile) > 0 {
		profileJSON, err := json.Marshal(state.Profile)
		if err == nil {
			b.WriteString("User profile: ")
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

	b.WriteString("\nUser message: ")
	b.WriteString(state.Message)
	return b.String()
}

// extractJSON pulls the outermost JSON object out of a model response that
// may be wrapped in markdown fences or prose.
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return response
	}

	return response[startIdx : endIdx+1]
}
