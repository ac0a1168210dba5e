package pipeline

import (
	"context"
	"log"

	"ai-concierge-be/pkg/store"
)

// DefaultMaxRetryCount bounds the zero-result escalation ladder.
const DefaultMaxRetryCount = 2

// CheckOutcome reports which queried targets came back empty and whether the
// escalation ladder still has rungs left.
type CheckOutcome struct {
	ZeroResultTargets []store.EntityType
	NeedsRetry        bool
}

// CheckResults is pure and deterministic: a target is zero-result when it was
// queried but its merged result list is empty.
func CheckResults(queries []store.PlannedQuery, results map[store.EntityType][]store.SearchResult, retryCount, maxRetryCount int) CheckOutcome {
	queried := make([]store.EntityType, 0, len(queries))
	seen := make(map[store.EntityType]bool)
	for _, q := range queries {
		if seen[q.Target] {
			continue
		}
		seen[q.Target] = true
		queried = append(queried, q.Target)
	}

	var zero []store.EntityType
	for _, target := range queried {
		if len(results[target]) == 0 {
			zero = append(zero, target)
		}
	}

	return CheckOutcome{
		ZeroResultTargets: zero,
		NeedsRetry:        len(zero) > 0 && retryCount < maxRetryCount,
	}
}

// RelaxQueries applies the relaxation ladder to the queries whose target came
// back empty: the first escalation forces faceted matching with a doubled
// limit, the second falls back to an exact master search.
func RelaxQueries(zeroTargets []store.EntityType, original []store.PlannedQuery, retryCount int) []store.PlannedQuery {
	zero := make(map[store.EntityType]bool, len(zeroTargets))
	for _, t := range zeroTargets {
		zero[t] = true
	}

	relaxed := make([]store.PlannedQuery, 0, len(original))
	for _, q := range original {
		if !zero[q.Target] {
			continue
		}
		switch retryCount {
		case 0:
			q.UseFaceted = true
			q.Limit *= 2
		default:
			q.UseFaceted = false
		}
		relaxed = append(relaxed, q)
	}
	return relaxed
}

// CheckerStage detects zero-result targets and escalates through relaxed
// re-searches, overwriting an empty entry only when the retry found
// something. Escalation stops at the retry ceiling or when nothing is empty.
type CheckerStage struct {
	searcher      Searcher
	maxRetryCount int
	logger        *log.Logger
}

func NewCheckerStage(searcher Searcher, maxRetryCount int, logger *log.Logger) *CheckerStage {
	if maxRetryCount <= 0 {
		maxRetryCount = DefaultMaxRetryCount
	}
	return &CheckerStage{
		searcher:      searcher,
		maxRetryCount: maxRetryCount,
		logger:        logger,
	}
}

func (s *CheckerStage) Name() string { return StageCheckResults }

func (s *CheckerStage) Run(ctx context.Context, state *TurnState) (*Update, error) {
	results := make(map[store.EntityType][]store.SearchResult, len(state.Results))
	for target, list := range state.Results {
		results[target] = list
	}

	retryCount := state.RetryCount
	retriesUsed := 0
	outcome := CheckResults(state.PlannedQueries, results, retryCount, s.maxRetryCount)

	for outcome.NeedsRetry {
		relaxed := RelaxQueries(outcome.ZeroResultTargets, state.PlannedQueries, retryCount)
		s.logger.Printf("[CHECKER] retry %d: relaxing %d queries for empty targets %v", retryCount+1, len(relaxed), outcome.ZeroResultTargets)

		for _, query := range relaxed {
			found, err := s.searcher.Search(ctx, query.Target, query.QueryText, state.ConferenceID, query.UseFaceted, query.Limit)
			if err != nil {
				s.logger.Printf("[CHECKER] relaxed %s query failed, keeping empty entry: %v", query.Target, err)
				continue
			}
			// Only a non-empty retry overwrites the empty entry.
			if len(found) > 0 {
				results[query.Target] = found
			}
		}

		retryCount++
		retriesUsed++
		outcome = CheckResults(state.PlannedQueries, results, retryCount, s.maxRetryCount)
	}

	return &Update{
		Results:           results,
		ZeroResultTargets: outcome.ZeroResultTargets,
		ClearZeroResults:  true,
		RetryCountDelta:   retriesUsed,
	}, nil
}
