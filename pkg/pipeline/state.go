package pipeline

import (
	"ai-concierge-be/pkg/store"
)

// TurnState is the single mutable record threaded through the pipeline for
// one user message. Stages never mutate it directly; they return an Update
// which the orchestrator merges.
type TurnState struct {
	Message        string
	UserID         string
	ConversationID string
	ConferenceID   string

	Profile        map[string]interface{}
	History        []store.ConversationTurn
	Acknowledgment string

	Intent         string
	DirectResponse bool
	FaqID          string
	QueryMode      string
	PlannedQueries []store.PlannedQuery
	ProfileUpdate  map[string]interface{}

	Results           map[store.EntityType][]store.SearchResult
	ZeroResultTargets []store.EntityType
	RetryCount        int

	ForceResponse  bool
	PartialFailure bool
	FailedStage    string
	ErrorContext   *ErrorContext

	Response           string
	ReferencedEntities []string
}

// Update is a partial state change produced by one stage. Nil/zero fields
// leave the corresponding TurnState field untouched; Results entries replace
// the entry for their target type.
type Update struct {
	Profile        map[string]interface{}
	History        []store.ConversationTurn
	Acknowledgment *string

	Intent         *string
	DirectResponse *bool
	FaqID          *string
	QueryMode      *string
	PlannedQueries []store.PlannedQuery
	ProfileUpdate  map[string]interface{}

	Results           map[store.EntityType][]store.SearchResult
	ZeroResultTargets []store.EntityType
	ClearZeroResults  bool
	RetryCountDelta   int

	ForceResponse  bool
	PartialFailure bool
	FailedStage    string
	ErrorContext   *ErrorContext

	Response           *string
	ReferencedEntities []string
}

// Apply merges the update into the state. The retry counter only moves
// forward, and ForceResponse is sticky once set.
func (s *TurnState) Apply(u *Update) {
	if u == nil {
		return
	}

	if u.Profile != nil {
		s.Profile = u.Profile
	}
	if u.History != nil {
		s.History = u.History
	}
	if u.Acknowledgment != nil {
		s.Acknowledgment = *u.Acknowledgment
	}
	if u.Intent != nil {
		s.Intent = *u.Intent
	}
	if u.DirectResponse != nil {
		s.DirectResponse = *u.DirectResponse
	}
	if u.FaqID != nil {
		s.FaqID = *u.FaqID
	}
	if u.QueryMode != nil {
		s.QueryMode = *u.QueryMode
	}
	if u.PlannedQueries != nil {
		s.PlannedQueries = u.PlannedQueries
	}
	if u.ProfileUpdate != nil {
		s.ProfileUpdate = u.ProfileUpdate
	}

	if u.Results != nil {
		if s.Results == nil {
			s.Results = make(map[store.EntityType][]store.SearchResult, len(u.Results))
		}
		for target, results := range u.Results {
			s.Results[target] = results
		}
	}
	if u.ClearZeroResults {
		s.ZeroResultTargets = nil
	}
	if u.ZeroResultTargets != nil {
		s.ZeroResultTargets = u.ZeroResultTargets
	}
	if u.RetryCountDelta > 0 {
		s.RetryCount += u.RetryCountDelta
	}

	if u.ForceResponse {
		s.ForceResponse = true
	}
	if u.PartialFailure {
		s.PartialFailure = true
	}
	if u.FailedStage != "" {
		s.FailedStage = u.FailedStage
	}
	if u.ErrorContext != nil {
		s.ErrorContext = u.ErrorContext
	}

	if u.Response != nil {
		s.Response = *u.Response
	}
	if u.ReferencedEntities != nil {
		s.ReferencedEntities = u.ReferencedEntities
	}
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }
