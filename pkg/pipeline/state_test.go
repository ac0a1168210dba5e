package pipeline

import (
	"testing"

	"ai-concierge-be/pkg/store"
)

func TestApplyMergesPartialUpdates(t *testing.T) {
	state := &TurnState{Message: "hi", RetryCount: 1}

	state.Apply(&Update{
		Profile:  map[string]interface{}{"role": "engineer"},
		Intent:   strptr("recommendation"),
		Response: strptr("hello"),
	})

	if state.Profile["role"] != "engineer" {
		t.Errorf("profile not merged: %v", state.Profile)
	}
	if state.Intent != "recommendation" || state.Response != "hello" {
		t.Errorf("scalar fields not merged: intent=%q response=%q", state.Intent, state.Response)
	}
	if state.Message != "hi" || state.RetryCount != 1 {
		t.Errorf("untouched fields changed: message=%q retry=%d", state.Message, state.RetryCount)
	}
}

func TestApplyResultsReplacePerTarget(t *testing.T) {
	state := &TurnState{Results: map[store.EntityType][]store.SearchResult{
		store.EntitySessions:   {{EntityID: "old"}},
		store.EntityExhibitors: {{EntityID: "kept"}},
	}}

	state.Apply(&Update{Results: map[store.EntityType][]store.SearchResult{
		store.EntitySessions: {{EntityID: "new"}},
	}})

	if len(state.Results[store.EntitySessions]) != 1 || state.Results[store.EntitySessions][0].EntityID != "new" {
		t.Errorf("sessions entry not replaced: %v", state.Results[store.EntitySessions])
	}
	if len(state.Results[store.EntityExhibitors]) != 1 || state.Results[store.EntityExhibitors][0].EntityID != "kept" {
		t.Errorf("exhibitors entry lost: %v", state.Results[store.EntityExhibitors])
	}
}

func TestApplyRetryCounterOnlyIncreases(t *testing.T) {
	state := &TurnState{RetryCount: 2}
	state.Apply(&Update{RetryCountDelta: -1})
	if state.RetryCount != 2 {
		t.Errorf("retry count decreased to %d", state.RetryCount)
	}
	state.Apply(&Update{RetryCountDelta: 1})
	if state.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", state.RetryCount)
	}
}

func TestApplyForceResponseIsSticky(t *testing.T) {
	state := &TurnState{}
	state.Apply(&Update{ForceResponse: true})
	state.Apply(&Update{})
	if !state.ForceResponse {
		t.Errorf("force response flag lost")
	}
}
