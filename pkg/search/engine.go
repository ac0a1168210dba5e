package search

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"

	"ai-concierge-be/pkg/embedding"
	"ai-concierge-be/pkg/resilience"
	"ai-concierge-be/pkg/store"
)

// oversampleFactor widens raw facet queries so the aggregation step has
// enough candidates to rank.
const oversampleFactor = 5

// VectorStore is the port the engine retrieves raw hits through. An empty
// facetKey targets the non-faceted master embedding of the entity type.
type VectorStore interface {
	SearchFaceted(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, facetKey string, limit int) ([]store.ScoredHit, error)
}

// Engine aggregates facet-scoped vector hits into ranked per-entity results.
type Engine struct {
	vectors  VectorStore
	embedder embedding.Provider
	facets   *FacetConfig
	breaker  *resilience.CircuitBreaker
	logger   *log.Logger
}

func NewEngine(vectors VectorStore, embedder embedding.Provider, facets *FacetConfig, breakers *resilience.BreakerRegistry, logger *log.Logger) *Engine {
	return &Engine{
		vectors:  vectors,
		embedder: embedder,
		facets:   facets,
		breaker:  breakers.Get("vector_store"),
		logger:   logger,
	}
}

// Search embeds queryText and delegates to SearchVector.
func (e *Engine) Search(ctx context.Context, entityType store.EntityType, queryText, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error) {
	vector, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}
	return e.SearchVector(ctx, entityType, vector, conferenceID, useFaceted, limit)
}

// SearchVector runs either a faceted aggregation search or a single
// master-index search, returning results ranked best-first and truncated to
// limit.
func (e *Engine) SearchVector(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, useFaceted bool, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if useFaceted {
		return e.searchFaceted(ctx, entityType, queryVector, conferenceID, limit)
	}
	return e.searchMaster(ctx, entityType, queryVector, conferenceID, limit)
}

// searchMaster performs an exact-name style lookup against the whole-entity
// embedding. Each hit maps 1:1 to a result with the raw similarity as score.
func (e *Engine) searchMaster(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, limit int) ([]store.SearchResult, error) {
	hits, err := e.query(ctx, entityType, queryVector, conferenceID, "", limit)
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, store.SearchResult{
			EntityID:     hit.EntityID,
			EntityType:   entityType,
			Score:        hit.Similarity,
			FacetMatches: 1,
			Payload:      hit.Payload,
		})
	}
	return results, nil
}

// entityAccumulator collects per-facet hits for one entity during aggregation.
type entityAccumulator struct {
	similarities []float64
	facetsHit    map[string]bool
	bestPayload  map[string]interface{}
	bestSim      float64
	firstSeen    int
}

// searchFaceted queries every facet sub-vector for the entity type, groups
// raw hits by entity and computes a composite score rewarding both matching
// strength and breadth across facets:
//
//	matchBonus = min(numMatches/4, 1.0)
//	composite  = avgSimilarity*0.6 + matchBonus*0.4
func (e *Engine) searchFaceted(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, limit int) ([]store.SearchResult, error) {
	facets := e.facets.Facets(entityType)
	if len(facets) == 0 {
		return e.searchMaster(ctx, entityType, queryVector, conferenceID, limit)
	}

	rawLimit := limit * oversampleFactor

	type facetHits struct {
		facetKey string
		hits     []store.ScoredHit
		err      error
	}

	var wg sync.WaitGroup
	perFacet := make([]facetHits, len(facets))
	for i, facet := range facets {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			hits, err := e.query(ctx, entityType, queryVector, conferenceID, key, rawLimit)
			perFacet[i] = facetHits{facetKey: key, hits: hits, err: err}
		}(i, facet.Key)
	}
	wg.Wait()

	// A facet query may fail while others succeed; keep what we have and only
	// fail the search when every facet failed.
	var firstErr error
	failed := 0
	accumulators := make(map[string]*entityAccumulator)
	order := 0
	for _, fh := range perFacet {
		if fh.err != nil {
			failed++
			if firstErr == nil {
				firstErr = fh.err
			}
			e.logger.Printf("[SEARCH] facet %s/%s query failed: %v", entityType, fh.facetKey, fh.err)
			continue
		}
		for _, hit := range fh.hits {
			acc, ok := accumulators[hit.EntityID]
			if !ok {
				// Cosine distance can push similarity below zero, so the best
				// seen so far starts at -Inf, not the zero value.
				acc = &entityAccumulator{
					facetsHit: make(map[string]bool),
					firstSeen: order,
					bestSim:   math.Inf(-1),
				}
				accumulators[hit.EntityID] = acc
				order++
			}
			acc.similarities = append(acc.similarities, hit.Similarity)
			acc.facetsHit[fh.facetKey] = true
			if hit.Similarity >= acc.bestSim {
				acc.bestSim = hit.Similarity
				acc.bestPayload = hit.Payload
			}
		}
	}
	if failed == len(facets) {
		return nil, firstErr
	}

	results := make([]store.SearchResult, 0, len(accumulators))
	for entityID, acc := range accumulators {
		var sum float64
		for _, s := range acc.similarities {
			sum += s
		}
		avgSimilarity := sum / float64(len(acc.similarities))
		numMatches := len(acc.facetsHit)
		matchBonus := float64(numMatches) / 4.0
		if matchBonus > 1.0 {
			matchBonus = 1.0
		}
		results = append(results, store.SearchResult{
			EntityID:     entityID,
			EntityType:   entityType,
			Score:        avgSimilarity*0.6 + matchBonus*0.4,
			FacetMatches: numMatches,
			Payload:      acc.bestPayload,
		})
	}

	// Stable by first-seen order so equal scores rank deterministically.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return accumulators[results[i].EntityID].firstSeen < accumulators[results[j].EntityID].firstSeen
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) query(ctx context.Context, entityType store.EntityType, queryVector []float32, conferenceID string, facetKey string, limit int) ([]store.ScoredHit, error) {
	var hits []store.ScoredHit
	err := e.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		hits, callErr = e.vectors.SearchFaceted(ctx, entityType, queryVector, conferenceID, facetKey, limit)
		return resilience.WrapCall("vector_store", callErr)
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}
