package pipeline

import (
	"fmt"

	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/store"
)

// ErrorContext is a structured, user-safe description of a stage failure.
// The technical detail is for logs only; the response generator grounds its
// apology on the hint, the retry suggestion and the data availability lists.
type ErrorContext struct {
	Stage           string          `json:"stage"`
	Kind            resilience.Kind `json:"kind"`
	TechnicalDetail string          `json:"-"`
	UserHint        string          `json:"user_hint"`
	Degraded        bool            `json:"degraded"`
	DataAvailable   []string        `json:"data_available"`
	DataMissing     []string        `json:"data_missing"`
	CanRetry        bool            `json:"can_retry"`
	RetrySuggestion string          `json:"retry_suggestion,omitempty"`
}

// Stage names as recorded in ErrorContext and logs.
const (
	StageFetchContext = "fetch_context"
	StagePlanQueries  = "plan_queries"
	StageExecute      = "execute_queries"
	StageCheckResults = "check_results"
	StageRespond      = "generate_response"
)

var genericHints = map[resilience.Kind]string{
	resilience.KindTimeout:    "That took longer than expected.",
	resilience.KindConnection: "I'm having trouble reaching part of the system.",
	resilience.KindRateLimit:  "The service is a little busy right now.",
	resilience.KindNotFound:   "I couldn't find what that step needed.",
	resilience.KindData:       "Part of the data came back in an unexpected shape.",
	resilience.KindUnknown:    "Something unexpected went wrong on my side.",
}

var stageHints = map[string]map[resilience.Kind]string{
	StageFetchContext: {
		resilience.KindTimeout:    "Loading your profile took too long, so I'm answering without it.",
		resilience.KindConnection: "I couldn't load your profile just now, so recommendations may be less tailored.",
		resilience.KindNotFound:   "I don't have a profile for you yet, so I'm answering generally.",
	},
	StagePlanQueries: {
		resilience.KindTimeout:   "Understanding your question took too long.",
		resilience.KindRateLimit: "The assistant is handling a lot of questions right now.",
		resilience.KindData:      "I had trouble interpreting your question.",
	},
	StageExecute: {
		resilience.KindTimeout:    "Searching the conference catalog took too long.",
		resilience.KindConnection: "The conference catalog is unreachable at the moment.",
		resilience.KindRateLimit:  "The search service is busy right now.",
	},
	StageRespond: {
		resilience.KindTimeout:   "Composing the answer took too long.",
		resilience.KindRateLimit: "The assistant is handling a lot of questions right now.",
	},
}

var retrySuggestions = map[resilience.Kind]string{
	resilience.KindTimeout:    "Please try again in a moment.",
	resilience.KindConnection: "Please try again shortly.",
	resilience.KindRateLimit:  "Please wait a few seconds and ask again.",
}

// BuildErrorContext classifies err, picks a user-facing hint for the failing
// stage and records which data categories the turn already holds versus lost.
func BuildErrorContext(stage string, err error, state *TurnState) *ErrorContext {
	kind := resilience.KindOf(err)

	hint := genericHints[kind]
	if hints, ok := stageHints[stage]; ok {
		if h, ok := hints[kind]; ok {
			hint = h
		}
	}

	available, missing := dataCategories(stage, state)

	ec := &ErrorContext{
		Stage:           stage,
		Kind:            kind,
		TechnicalDetail: fmt.Sprintf("stage %s failed: %v", stage, err),
		UserHint:        hint,
		Degraded:        true,
		DataAvailable:   available,
		DataMissing:     missing,
		CanRetry:        resilience.Retryable(kind),
	}
	if ec.CanRetry {
		ec.RetrySuggestion = retrySuggestions[kind]
	}
	return ec
}

// dataCategories inspects the turn state and reports what survived the
// failure. Each queried target contributes a "search:<target>" entry to
// whichever list matches its result count.
func dataCategories(stage string, state *TurnState) (available, missing []string) {
	if len(state.Profile) > 0 {
		available = append(available, "profile")
	} else {
		missing = append(missing, "profile")
	}
	if len(state.History) > 0 {
		available = append(available, "conversation_history")
	}
	if state.Acknowledgment != "" {
		available = append(available, "acknowledgment")
	}
	if len(state.PlannedQueries) > 0 {
		available = append(available, "search_plan")
	}

	queried := make(map[store.EntityType]bool)
	for _, q := range state.PlannedQueries {
		queried[q.Target] = true
	}
	anyResults := false
	for _, target := range store.AllEntityTypes {
		if !queried[target] {
			continue
		}
		if len(state.Results[target]) > 0 {
			available = append(available, "search:"+string(target))
			anyResults = true
		} else {
			missing = append(missing, "search:"+string(target))
		}
	}
	if stage == StageExecute && !anyResults {
		missing = append(missing, "search_results")
	}
	return available, missing
}
