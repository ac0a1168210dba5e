package search

import (
	"context"
	"io"
	"log"
	"math"
	"sync"
	"testing"

	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/store"
)

type fakeVectorStore struct {
	// hits keyed by facetKey ("" = master index)
	hits map[string][]store.ScoredHit
	err  error

	mu    sync.Mutex
	calls []string
}

func (f *fakeVectorStore) SearchFaceted(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, facetKey string, limit int) ([]store.ScoredHit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, facetKey)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[facetKey], nil
}

func (f *fakeVectorStore) recordedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func testEngine(t *testing.T, vectors VectorStore) *Engine {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	cfg, err := LoadFacetConfig("")
	if err != nil {
		t.Fatalf("load facet config: %v", err)
	}
	breakers := resilience.NewBreakerRegistry(resilience.DefaultBreakerConfig(), logger)
	return NewEngine(vectors, &fakeEmbedder{vector: []float32{0.1, 0.2}}, cfg, breakers, logger)
}

func TestFacetedCompositeScoring(t *testing.T) {
	// Entity A matched on 3 facets with similarities 0.9/0.8/0.7; entity B on a
	// single facet at 0.95. Breadth must outrank peak similarity.
	vectors := &fakeVectorStore{hits: map[string][]store.ScoredHit{
		"offerings": {
			{EntityID: "a", FacetKey: "offerings", Similarity: 0.9},
			{EntityID: "b", FacetKey: "offerings", Similarity: 0.95},
		},
		"industry": {{EntityID: "a", FacetKey: "industry", Similarity: 0.8}},
		"products": {{EntityID: "a", FacetKey: "products", Similarity: 0.7}},
	}}

	results, err := testEngine(t, vectors).Search(context.Background(), store.EntityExhibitors, "cloud tooling", "conf-1", true, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].EntityID != "a" || results[1].EntityID != "b" {
		t.Errorf("expected order [a b], got [%s %s]", results[0].EntityID, results[1].EntityID)
	}
	if math.Abs(results[0].Score-0.78) > 1e-9 {
		t.Errorf("entity a score = %v, want 0.78", results[0].Score)
	}
	if math.Abs(results[1].Score-0.67) > 1e-9 {
		t.Errorf("entity b score = %v, want 0.67", results[1].Score)
	}
	if results[0].FacetMatches != 3 {
		t.Errorf("entity a facet matches = %d, want 3", results[0].FacetMatches)
	}
}

func TestFacetedMatchBonusSaturates(t *testing.T) {
	// Five matched facets must not push the bonus past 1.0.
	hits := map[string][]store.ScoredHit{}
	for _, key := range []string{"topic", "abstract", "audience", "format", "takeaways"} {
		hits[key] = []store.ScoredHit{{EntityID: "a", FacetKey: key, Similarity: 0.5}}
	}
	vectors := &fakeVectorStore{hits: hits}

	results, err := testEngine(t, vectors).Search(context.Background(), store.EntitySessions, "keynote", "conf-1", true, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := 0.5*0.6 + 1.0*0.4
	if math.Abs(results[0].Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", results[0].Score, want)
	}
}

func TestFacetedNegativeSimilaritiesKeepPayload(t *testing.T) {
	// Cosine distance can exceed 1, so stored similarities can all be negative.
	// The least-bad hit must still supply the payload.
	vectors := &fakeVectorStore{hits: map[string][]store.ScoredHit{
		"offerings": {{EntityID: "a", FacetKey: "offerings", Similarity: -0.4}},
		"industry": {
			{EntityID: "a", FacetKey: "industry", Similarity: -0.1, Payload: map[string]interface{}{"name": "Acme"}},
		},
	}}

	results, err := testEngine(t, vectors).Search(context.Background(), store.EntityExhibitors, "antique looms", "conf-1", true, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Payload == nil || results[0].Payload["name"] != "Acme" {
		t.Errorf("expected payload from best (least negative) hit, got %v", results[0].Payload)
	}
}

func TestFacetedTruncatesToLimit(t *testing.T) {
	hits := map[string][]store.ScoredHit{"topic": {}}
	for i := 0; i < 10; i++ {
		hits["topic"] = append(hits["topic"], store.ScoredHit{
			EntityID:   string(rune('a' + i)),
			FacetKey:   "topic",
			Similarity: 1.0 - float64(i)*0.05,
		})
	}
	vectors := &fakeVectorStore{hits: hits}

	results, err := testEngine(t, vectors).Search(context.Background(), store.EntitySessions, "ai", "conf-1", true, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestMasterModeSingleQuery(t *testing.T) {
	vectors := &fakeVectorStore{hits: map[string][]store.ScoredHit{
		"": {
			{EntityID: "acme", Similarity: 0.92, Payload: map[string]interface{}{"name": "Acme"}},
			{EntityID: "globex", Similarity: 0.81},
		},
	}}

	results, err := testEngine(t, vectors).Search(context.Background(), store.EntityExhibitors, "Acme Corp", "conf-1", false, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	calls := vectors.recordedCalls()
	if len(calls) != 1 || calls[0] != "" {
		t.Errorf("expected a single master-index query, got calls %v", calls)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score != 0.92 || results[0].FacetMatches != 1 {
		t.Errorf("master hit mapped wrong: score=%v facetMatches=%d", results[0].Score, results[0].FacetMatches)
	}
	if results[0].Payload["name"] != "Acme" {
		t.Errorf("payload not carried through: %v", results[0].Payload)
	}
}

func TestFacetedQueriesAllConfiguredFacets(t *testing.T) {
	vectors := &fakeVectorStore{hits: map[string][]store.ScoredHit{}}

	_, err := testEngine(t, vectors).Search(context.Background(), store.EntitySpeakers, "ml experts", "conf-1", true, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	calls := vectors.recordedCalls()
	if len(calls) != 4 {
		t.Errorf("expected 4 facet queries for speakers, got %d (%v)", len(calls), calls)
	}
	for _, call := range calls {
		if call == "" {
			t.Errorf("faceted mode must not query the master index")
		}
	}
}
