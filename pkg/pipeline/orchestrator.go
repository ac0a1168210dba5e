package pipeline

import (
	"context"
	"log"

	"ai-concierge-be/pkg/store"
)

const fallbackResponse = "Sorry, I ran into a problem answering that. Please try again in a moment."

// Orchestrator sequences the turn pipeline: fetch context → plan → execute →
// check/escalate → respond. The stage topology is fixed; every stage is
// wrapped so a failure degrades the turn instead of aborting it, and a
// critical-stage failure skips ahead to response generation.
type Orchestrator struct {
	stages  []Stage
	respond Stage
	logger  *log.Logger
}

// Deps carries the constructed stages. Wiring lives in the process
// bootstrap; the orchestrator only owns sequencing.
type Deps struct {
	Context  Stage
	Planner  Stage
	Executor Stage
	Checker  Stage
	Respond  Stage
}

func NewOrchestrator(deps Deps, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		stages: []Stage{
			Graceful(deps.Context, false, logger),
			Graceful(deps.Planner, true, logger),
			Graceful(deps.Executor, true, logger),
			Graceful(deps.Checker, false, logger),
		},
		respond: Graceful(deps.Respond, true, logger),
		logger:  logger,
	}
}

// RunTurn executes one conversation turn. It always returns a usable state
// with a non-empty response; no stage failure propagates as an error.
func (o *Orchestrator) RunTurn(ctx context.Context, state *TurnState) *TurnState {
	if state.Results == nil {
		state.Results = make(map[store.EntityType][]store.SearchResult)
	}

	for _, stage := range o.stages {
		if state.ForceResponse {
			o.logger.Printf("[PIPELINE] skipping stage %s: response forced by earlier failure", stage.Name())
			continue
		}
		update, _ := stage.Run(ctx, state) // graceful stages never return errors
		state.Apply(update)
	}

	update, _ := o.respond.Run(ctx, state)
	state.Apply(update)

	// Even the response stage can degrade; the turn still answers.
	if state.Response == "" {
		state.Response = fallbackResponse
		if state.ErrorContext != nil && state.ErrorContext.UserHint != "" {
			state.Response = state.ErrorContext.UserHint + " Please try again in a moment."
		}
	}
	return state
}
