package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/store"
)

// Searcher is the faceted search port the executor dispatches to.
type Searcher interface {
	Search(ctx context.Context, entityType store.EntityType, queryText, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error)
	SearchVector(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error)
}

// Embedder is the subset of the embedding provider the executor needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ExecutorStage embeds all distinct query texts in one batch, fans the
// searches out concurrently and merges results per target entity type. A
// single failing query degrades to an empty list for its target; only a
// failed batch embedding fails the stage.
type ExecutorStage struct {
	searcher Searcher
	embedder Embedder
	logger   *log.Logger
}

func NewExecutorStage(searcher Searcher, embedder Embedder, logger *log.Logger) *ExecutorStage {
	return &ExecutorStage{
		searcher: searcher,
		embedder: embedder,
		logger:   logger,
	}
}

func (s *ExecutorStage) Name() string { return StageExecute }

func (s *ExecutorStage) Run(ctx context.Context, state *TurnState) (*Update, error) {
	queries := state.PlannedQueries
	if len(queries) == 0 {
		return &Update{Results: map[store.EntityType][]store.SearchResult{}}, nil
	}

	vectors, err := s.embedQueries(ctx, queries)
	if err != nil {
		return nil, err
	}

	// Fan out one task per planned query; each task owns its failure and
	// degrades to an empty list. Per-query result slots keep the merge
	// deterministic regardless of completion order.
	perQuery := make([][]store.SearchResult, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query store.PlannedQuery) {
			defer wg.Done()
			results, err := s.searcher.SearchVector(ctx, query.Target, vectors[query.QueryText], state.ConferenceID, query.UseFaceted, query.Limit)
			if err != nil {
				s.logger.Printf("[EXECUTOR] %s query %q failed, recording empty result: %v", query.Target, query.QueryText, err)
				return
			}
			perQuery[i] = results
		}(i, query)
	}
	wg.Wait()

	// Multiple queries against the same target concatenate in plan order,
	// without dedup or re-ranking.
	merged := make(map[store.EntityType][]store.SearchResult)
	for i, query := range queries {
		if _, ok := merged[query.Target]; !ok {
			merged[query.Target] = []store.SearchResult{}
		}
		merged[query.Target] = append(merged[query.Target], perQuery[i]...)
	}

	return &Update{Results: merged}, nil
}

// embedQueries issues a single batched embedding call for the set of
// distinct query texts, saving duplicate embedding work.
func (s *ExecutorStage) embedQueries(ctx context.Context, queries []store.PlannedQuery) (map[string][]float32, error) {
	distinct := make([]string, 0, len(queries))
	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		if seen[q.QueryText] {
			continue
		}
		seen[q.QueryText] = true
		distinct = append(distinct, q.QueryText)
	}

	embedded, err := s.embedder.EmbedBatch(ctx, distinct)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(distinct) {
		return nil, &resilience.CallError{
			Kind:       resilience.KindData,
			Dependency: "embedding",
			Cause:      fmt.Errorf("embed batch returned %d vectors for %d texts", len(embedded), len(distinct)),
		}
	}

	vectors := make(map[string][]float32, len(distinct))
	for i, text := range distinct {
		vectors[text] = embedded[i]
	}
	return vectors, nil
}
