package pipeline

import (
	"context"
	"testing"

	"ai-concierge-be/pkg/store"
)

func TestCheckResultsZeroTargets(t *testing.T) {
	queries := []store.PlannedQuery{
		{Target: store.EntitySessions, QueryText: "a"},
		{Target: store.EntityExhibitors, QueryText: "b"},
	}
	results := map[store.EntityType][]store.SearchResult{
		store.EntitySessions:   {},
		store.EntityExhibitors: {{EntityID: "r1"}},
	}

	outcome := CheckResults(queries, results, 0, DefaultMaxRetryCount)
	if len(outcome.ZeroResultTargets) != 1 || outcome.ZeroResultTargets[0] != store.EntitySessions {
		t.Errorf("zero targets = %v, want [sessions]", outcome.ZeroResultTargets)
	}
	if !outcome.NeedsRetry {
		t.Errorf("needsRetry should be true below the retry ceiling")
	}
}

func TestCheckResultsRespectsRetryCeiling(t *testing.T) {
	queries := []store.PlannedQuery{{Target: store.EntitySessions, QueryText: "a"}}
	results := map[store.EntityType][]store.SearchResult{store.EntitySessions: {}}

	outcome := CheckResults(queries, results, DefaultMaxRetryCount, DefaultMaxRetryCount)
	if outcome.NeedsRetry {
		t.Errorf("needsRetry must be false at the ceiling regardless of zero results")
	}
	if len(outcome.ZeroResultTargets) != 1 {
		t.Errorf("zero targets still reported at the ceiling: %v", outcome.ZeroResultTargets)
	}
}

func TestCheckResultsAllPopulated(t *testing.T) {
	queries := []store.PlannedQuery{{Target: store.EntitySessions, QueryText: "a"}}
	results := map[store.EntityType][]store.SearchResult{store.EntitySessions: {{EntityID: "r1"}}}

	outcome := CheckResults(queries, results, 0, DefaultMaxRetryCount)
	if outcome.NeedsRetry || len(outcome.ZeroResultTargets) != 0 {
		t.Errorf("populated targets should not trigger retry: %+v", outcome)
	}
}

func TestRelaxQueriesLadder(t *testing.T) {
	original := []store.PlannedQuery{
		{Target: store.EntitySessions, QueryText: "a", UseFaceted: false, Limit: 5},
		{Target: store.EntityExhibitors, QueryText: "b", UseFaceted: true, Limit: 5},
	}
	zero := []store.EntityType{store.EntitySessions}

	first := RelaxQueries(zero, original, 0)
	if len(first) != 1 {
		t.Fatalf("only zero-target queries should be relaxed, got %d", len(first))
	}
	if !first[0].UseFaceted || first[0].Limit != 10 {
		t.Errorf("retry 0 should force faceted with doubled limit: %+v", first[0])
	}

	second := RelaxQueries(zero, original, 1)
	if second[0].UseFaceted {
		t.Errorf("retry 1 should force the master search: %+v", second[0])
	}
	if second[0].Limit != 5 {
		t.Errorf("retry 1 should keep the original limit: %+v", second[0])
	}
}

// ladderSearcher returns results only once the relaxation reaches a
// configured shape.
type ladderSearcher struct {
	succeedOnFaceted bool
	hits             []store.SearchResult
	calls            int
}

func (l *ladderSearcher) Search(ctx context.Context, entityType store.EntityType, queryText, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error) {
	l.calls++
	if useFaceted == l.succeedOnFaceted {
		return l.hits, nil
	}
	return nil, nil
}

func (l *ladderSearcher) SearchVector(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error) {
	return l.Search(ctx, entityType, "", conferenceID, useFaceted, limit)
}

func TestCheckerStageOverwritesOnSuccessfulRetry(t *testing.T) {
	searcher := &ladderSearcher{succeedOnFaceted: true, hits: []store.SearchResult{{EntityID: "found"}}}
	stage := NewCheckerStage(searcher, DefaultMaxRetryCount, discardLogger())

	state := &TurnState{
		PlannedQueries: []store.PlannedQuery{{Target: store.EntitySessions, QueryText: "a", UseFaceted: false, Limit: 5}},
		Results:        map[store.EntityType][]store.SearchResult{store.EntitySessions: {}},
	}

	update, err := stage.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := update.Results[store.EntitySessions]; len(got) != 1 || got[0].EntityID != "found" {
		t.Errorf("retry result should overwrite the empty entry, got %v", got)
	}
	if update.RetryCountDelta != 1 {
		t.Errorf("retry count delta = %d, want 1", update.RetryCountDelta)
	}
	if len(update.ZeroResultTargets) != 0 {
		t.Errorf("no zero targets expected after successful retry: %v", update.ZeroResultTargets)
	}
}

func TestCheckerStageExhaustsLadderAndKeepsEmpty(t *testing.T) {
	// Never succeeds: both rungs of the ladder run, the entry stays empty.
	searcher := &ladderSearcher{succeedOnFaceted: true, hits: nil}
	stage := NewCheckerStage(searcher, DefaultMaxRetryCount, discardLogger())

	state := &TurnState{
		PlannedQueries: []store.PlannedQuery{{Target: store.EntitySessions, QueryText: "a", UseFaceted: false, Limit: 5}},
		Results:        map[store.EntityType][]store.SearchResult{store.EntitySessions: {}},
	}

	update, err := stage.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if update.RetryCountDelta != DefaultMaxRetryCount {
		t.Errorf("delta = %d, want %d", update.RetryCountDelta, DefaultMaxRetryCount)
	}
	if searcher.calls != 2 {
		t.Errorf("expected 2 relaxed searches, got %d", searcher.calls)
	}
	if got := update.Results[store.EntitySessions]; len(got) != 0 {
		t.Errorf("empty entry should remain empty: %v", got)
	}
	if len(update.ZeroResultTargets) != 1 {
		t.Errorf("exhausted target should stay reported: %v", update.ZeroResultTargets)
	}
}

func TestCheckerStageNoZeroTargetsNoRetries(t *testing.T) {
	searcher := &ladderSearcher{}
	stage := NewCheckerStage(searcher, DefaultMaxRetryCount, discardLogger())

	state := &TurnState{
		PlannedQueries: []store.PlannedQuery{{Target: store.EntitySessions, QueryText: "a", Limit: 5}},
		Results:        map[store.EntityType][]store.SearchResult{store.EntitySessions: {{EntityID: "r1"}}},
	}

	update, err := stage.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if searcher.calls != 0 || update.RetryCountDelta != 0 {
		t.Errorf("populated results must not trigger searches: calls=%d delta=%d", searcher.calls, update.RetryCountDelta)
	}
}
