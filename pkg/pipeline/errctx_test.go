package pipeline

import (
	"errors"
	"strings"
	"testing"

	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/store"
)

func TestBuildErrorContextClassifiesAndHints(t *testing.T) {
	state := &TurnState{}
	ec := BuildErrorContext(StageExecute, errors.New("dial tcp: connect refused"), state)

	if ec.Kind != resilience.KindConnection {
		t.Errorf("kind = %s, want connection", ec.Kind)
	}
	if ec.UserHint != stageHints[StageExecute][resilience.KindConnection] {
		t.Errorf("expected stage-specific hint, got %q", ec.UserHint)
	}
	if !ec.CanRetry || ec.RetrySuggestion == "" {
		t.Errorf("connection failures should be retryable with a suggestion")
	}
	if !ec.Degraded {
		t.Errorf("degraded flag not set")
	}
}

func TestBuildErrorContextGenericHintFallback(t *testing.T) {
	ec := BuildErrorContext(StageCheckResults, errors.New("weird failure"), &TurnState{})
	if ec.Kind != resilience.KindUnknown {
		t.Errorf("kind = %s, want unknown", ec.Kind)
	}
	if ec.UserHint != genericHints[resilience.KindUnknown] {
		t.Errorf("expected generic hint, got %q", ec.UserHint)
	}
	if ec.CanRetry {
		t.Errorf("unknown failures must not be marked retryable")
	}
}

func TestBuildErrorContextTechnicalDetailNeverInHint(t *testing.T) {
	ec := BuildErrorContext(StagePlanQueries, errors.New("pq: relation missing at 0xdeadbeef"), &TurnState{})
	if strings.Contains(ec.UserHint, "deadbeef") || strings.Contains(ec.RetrySuggestion, "deadbeef") {
		t.Errorf("technical detail leaked into user-facing fields")
	}
	if !strings.Contains(ec.TechnicalDetail, "deadbeef") {
		t.Errorf("technical detail should carry the raw error")
	}
}

func TestDataCategoriesPerTarget(t *testing.T) {
	state := &TurnState{
		Profile: map[string]interface{}{"role": "engineer"},
		History: []store.ConversationTurn{{Role: "user", Content: "hi"}},
		PlannedQueries: []store.PlannedQuery{
			{Target: store.EntitySessions, QueryText: "ai"},
			{Target: store.EntityExhibitors, QueryText: "cloud"},
		},
		Results: map[store.EntityType][]store.SearchResult{
			store.EntitySessions:   {{EntityID: "s1"}},
			store.EntityExhibitors: {},
		},
	}

	ec := BuildErrorContext(StageCheckResults, errors.New("timeout"), state)

	wantAvailable := []string{"profile", "conversation_history", "search_plan", "search:sessions"}
	for _, w := range wantAvailable {
		if !containsString(ec.DataAvailable, w) {
			t.Errorf("available missing %q: %v", w, ec.DataAvailable)
		}
	}
	if !containsString(ec.DataMissing, "search:exhibitors") {
		t.Errorf("missing should name empty targets: %v", ec.DataMissing)
	}
	if containsString(ec.DataMissing, "search_results") {
		t.Errorf("search_results marker only applies to the search stage itself")
	}
}

func TestDataCategoriesSearchStageTotalLoss(t *testing.T) {
	state := &TurnState{
		PlannedQueries: []store.PlannedQuery{{Target: store.EntitySessions, QueryText: "ai"}},
		Results:        map[store.EntityType][]store.SearchResult{},
	}
	ec := BuildErrorContext(StageExecute, errors.New("timeout"), state)
	if !containsString(ec.DataMissing, "search_results") {
		t.Errorf("search stage with no results at all should flag search_results: %v", ec.DataMissing)
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
