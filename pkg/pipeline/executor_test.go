package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"ai-concierge-be/pkg/store"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[store.EntityType][]store.SearchResult
	fail    map[store.EntityType]error
	calls   []store.PlannedQuery
}

func (f *fakeSearcher) record(q store.PlannedQuery) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
}

func (f *fakeSearcher) Search(ctx context.Context, entityType store.EntityType, queryText, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error) {
	f.record(store.PlannedQuery{Target: entityType, QueryText: queryText, UseFaceted: useFaceted, Limit: limit})
	if err := f.fail[entityType]; err != nil {
		return nil, err
	}
	return f.results[entityType], nil
}

func (f *fakeSearcher) SearchVector(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error) {
	return f.Search(ctx, entityType, "", conferenceID, useFaceted, limit)
}

type countingEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, texts)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1}
	}
	return out, nil
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestExecutorDeduplicatesEmbeddingTexts(t *testing.T) {
	searcher := &fakeSearcher{results: map[store.EntityType][]store.SearchResult{}}
	embedder := &countingEmbedder{}
	stage := NewExecutorStage(searcher, embedder, discardLogger())

	state := &TurnState{PlannedQueries: []store.PlannedQuery{
		{Target: store.EntitySessions, QueryText: "ai talks", UseFaceted: true, Limit: 5},
		{Target: store.EntityExhibitors, QueryText: "ai talks", UseFaceted: true, Limit: 5},
		{Target: store.EntitySpeakers, QueryText: "keynote", UseFaceted: true, Limit: 5},
	}}

	if _, err := stage.Run(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(embedder.batches) != 1 {
		t.Fatalf("expected one batched embedding call, got %d", len(embedder.batches))
	}
	if len(embedder.batches[0]) != 2 {
		t.Errorf("expected 2 distinct texts, got %v", embedder.batches[0])
	}
}

func TestExecutorMergesByTargetConcatenating(t *testing.T) {
	searcher := &fakeSearcher{results: map[store.EntityType][]store.SearchResult{
		store.EntitySessions: {{EntityID: "s1"}, {EntityID: "s2"}},
	}}
	stage := NewExecutorStage(searcher, &countingEmbedder{}, discardLogger())

	state := &TurnState{PlannedQueries: []store.PlannedQuery{
		{Target: store.EntitySessions, QueryText: "a", UseFaceted: true, Limit: 5},
		{Target: store.EntitySessions, QueryText: "b", UseFaceted: true, Limit: 5},
	}}

	update, err := stage.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Two queries against the same target concatenate without dedup.
	if got := len(update.Results[store.EntitySessions]); got != 4 {
		t.Errorf("sessions results = %d, want 4", got)
	}
}

func TestExecutorSingleQueryFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[store.EntityType][]store.SearchResult{
			store.EntityExhibitors: {{EntityID: "e1"}},
		},
		fail: map[store.EntityType]error{store.EntitySessions: errors.New("backend down")},
	}
	stage := NewExecutorStage(searcher, &countingEmbedder{}, discardLogger())

	state := &TurnState{PlannedQueries: []store.PlannedQuery{
		{Target: store.EntitySessions, QueryText: "a", UseFaceted: true, Limit: 5},
		{Target: store.EntityExhibitors, QueryText: "b", UseFaceted: true, Limit: 5},
	}}

	update, err := stage.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("a single failing query must not fail the stage: %v", err)
	}
	if got := update.Results[store.EntitySessions]; len(got) != 0 {
		t.Errorf("failed target should record empty results, got %v", got)
	}
	if got := update.Results[store.EntityExhibitors]; len(got) != 1 {
		t.Errorf("healthy target lost its results: %v", got)
	}
}

func TestExecutorEmbeddingFailureFailsStage(t *testing.T) {
	stage := NewExecutorStage(&fakeSearcher{}, &countingEmbedder{err: errors.New("embed down")}, discardLogger())

	state := &TurnState{PlannedQueries: []store.PlannedQuery{
		{Target: store.EntitySessions, QueryText: "a", UseFaceted: true, Limit: 5},
	}}

	if _, err := stage.Run(context.Background(), state); err == nil {
		t.Errorf("batch embedding failure should fail the stage for the graceful wrapper to catch")
	}
}

func TestExecutorNoQueriesIsNoop(t *testing.T) {
	embedder := &countingEmbedder{}
	stage := NewExecutorStage(&fakeSearcher{}, embedder, discardLogger())

	update, err := stage.Run(context.Background(), &TurnState{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(embedder.batches) != 0 {
		t.Errorf("no queries should mean no embedding calls")
	}
	if update.Results == nil {
		t.Errorf("expected empty result map, got nil")
	}
}
