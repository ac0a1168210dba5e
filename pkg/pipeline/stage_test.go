package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestGracefulPassesThroughSuccess(t *testing.T) {
	inner := StageFunc{StageName: "ok_stage", Fn: func(ctx context.Context, state *TurnState) (*Update, error) {
		return &Update{Response: strptr("fine")}, nil
	}}
	wrapped := Graceful(inner, false, discardLogger())

	update, err := wrapped.Run(context.Background(), &TurnState{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if update.Response == nil || *update.Response != "fine" {
		t.Errorf("success update altered: %+v", update)
	}
	if wrapped.Name() != "ok_stage" {
		t.Errorf("wrapper must preserve the stage name, got %q", wrapped.Name())
	}
}

func TestGracefulSwallowsFailure(t *testing.T) {
	inner := StageFunc{StageName: StageFetchContext, Fn: func(ctx context.Context, state *TurnState) (*Update, error) {
		return nil, errors.New("connection refused")
	}}
	wrapped := Graceful(inner, false, discardLogger())

	update, err := wrapped.Run(context.Background(), &TurnState{})
	if err != nil {
		t.Fatalf("graceful stage must never return an error, got %v", err)
	}
	if update.ErrorContext == nil || update.ErrorContext.Stage != StageFetchContext {
		t.Fatalf("expected error context for the failing stage, got %+v", update)
	}
	if !update.PartialFailure || update.FailedStage != StageFetchContext {
		t.Errorf("partial failure bookkeeping missing: %+v", update)
	}
	if update.ForceResponse {
		t.Errorf("non-critical failure must not force the response")
	}
}

func TestGracefulCriticalForcesResponse(t *testing.T) {
	inner := StageFunc{StageName: StagePlanQueries, Fn: func(ctx context.Context, state *TurnState) (*Update, error) {
		return nil, errors.New("timeout")
	}}
	wrapped := Graceful(inner, true, discardLogger())

	update, _ := wrapped.Run(context.Background(), &TurnState{})
	if !update.ForceResponse {
		t.Errorf("critical failure must force the response")
	}
}

func TestGracefulRecoversPanic(t *testing.T) {
	inner := StageFunc{StageName: StageExecute, Fn: func(ctx context.Context, state *TurnState) (*Update, error) {
		panic("index out of range")
	}}
	wrapped := Graceful(inner, true, discardLogger())

	update, err := wrapped.Run(context.Background(), &TurnState{})
	if err != nil {
		t.Fatalf("panic must be swallowed, got error %v", err)
	}
	if update.ErrorContext == nil {
		t.Fatalf("expected error context after panic")
	}
}
