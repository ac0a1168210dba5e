package pipeline

import (
	"context"
	"errors"
	"testing"

	"ai-concierge-be/pkg/store"
)

func stage(name string, fn func(ctx context.Context, state *TurnState) (*Update, error)) Stage {
	return StageFunc{StageName: name, Fn: fn}
}

func TestOrchestratorHappyPath(t *testing.T) {
	var ran []string
	record := func(name string, update *Update) Stage {
		return stage(name, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, name)
			return update, nil
		})
	}

	orch := NewOrchestrator(Deps{
		Context: record(StageFetchContext, &Update{Profile: map[string]interface{}{"role": "dev"}}),
		Planner: record(StagePlanQueries, &Update{PlannedQueries: []store.PlannedQuery{{Target: store.EntitySessions, QueryText: "ai", UseFaceted: true, Limit: 5}}}),
		Executor: record(StageExecute, &Update{Results: map[store.EntityType][]store.SearchResult{
			store.EntitySessions: {{EntityID: "s1", Score: 0.9}},
		}}),
		Checker: record(StageCheckResults, &Update{}),
		Respond: record(StageRespond, &Update{Response: strptr("Here are two sessions.")}),
	}, discardLogger())

	state := orch.RunTurn(context.Background(), &TurnState{Message: "what ai talks are on?"})

	want := []string{StageFetchContext, StagePlanQueries, StageExecute, StageCheckResults, StageRespond}
	if len(ran) != len(want) {
		t.Fatalf("stages ran = %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("stage order = %v, want %v", ran, want)
		}
	}
	if state.Response != "Here are two sessions." {
		t.Errorf("response = %q", state.Response)
	}
	if state.PartialFailure {
		t.Errorf("clean run flagged as degraded")
	}
}

func TestOrchestratorCriticalFailureSkipsToRespond(t *testing.T) {
	var ran []string
	orch := NewOrchestrator(Deps{
		Context: stage(StageFetchContext, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageFetchContext)
			return &Update{}, nil
		}),
		Planner: stage(StagePlanQueries, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StagePlanQueries)
			return nil, errors.New("timeout contacting model")
		}),
		Executor: stage(StageExecute, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageExecute)
			return &Update{}, nil
		}),
		Checker: stage(StageCheckResults, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageCheckResults)
			return &Update{}, nil
		}),
		Respond: stage(StageRespond, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageRespond)
			return &Update{Response: strptr("Sorry, that took too long. Try again?")}, nil
		}),
	}, discardLogger())

	state := orch.RunTurn(context.Background(), &TurnState{Message: "hi"})

	for _, name := range ran {
		if name == StageExecute || name == StageCheckResults {
			t.Errorf("stage %s ran after critical failure", name)
		}
	}
	if state.ErrorContext == nil || state.FailedStage != StagePlanQueries {
		t.Errorf("error context not recorded: failed=%q", state.FailedStage)
	}
	if state.Response == "" {
		t.Errorf("turn must still answer after critical failure")
	}
}

func TestOrchestratorNonCriticalFailureContinues(t *testing.T) {
	var ran []string
	orch := NewOrchestrator(Deps{
		Context: stage(StageFetchContext, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageFetchContext)
			return nil, errors.New("connect: profile store down")
		}),
		Planner: stage(StagePlanQueries, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StagePlanQueries)
			return &Update{}, nil
		}),
		Executor: stage(StageExecute, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageExecute)
			return &Update{}, nil
		}),
		Checker: stage(StageCheckResults, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageCheckResults)
			return &Update{}, nil
		}),
		Respond: stage(StageRespond, func(ctx context.Context, state *TurnState) (*Update, error) {
			ran = append(ran, StageRespond)
			return &Update{Response: strptr("answered without profile")}, nil
		}),
	}, discardLogger())

	state := orch.RunTurn(context.Background(), &TurnState{Message: "hi"})

	if len(ran) != 5 {
		t.Errorf("non-critical failure should not skip stages, ran %v", ran)
	}
	if !state.PartialFailure {
		t.Errorf("degraded turn not flagged")
	}
	if state.Response != "answered without profile" {
		t.Errorf("response = %q", state.Response)
	}
}

func TestOrchestratorFallbackWhenRespondFails(t *testing.T) {
	noop := func(name string) Stage {
		return stage(name, func(ctx context.Context, state *TurnState) (*Update, error) {
			return &Update{}, nil
		})
	}
	orch := NewOrchestrator(Deps{
		Context:  noop(StageFetchContext),
		Planner:  noop(StagePlanQueries),
		Executor: noop(StageExecute),
		Checker:  noop(StageCheckResults),
		Respond: stage(StageRespond, func(ctx context.Context, state *TurnState) (*Update, error) {
			return nil, errors.New("model timeout")
		}),
	}, discardLogger())

	state := orch.RunTurn(context.Background(), &TurnState{Message: "hi"})

	if state.Response == "" {
		t.Fatalf("turn ended without a response")
	}
	if state.ErrorContext == nil || state.ErrorContext.Stage != StageRespond {
		t.Errorf("respond failure not captured: %+v", state.ErrorContext)
	}
}
