package pipeline

import (
	"context"
	"fmt"
	"log"
)

// Stage is one step of the turn pipeline. Run reads the state and returns a
// partial update; it must not mutate the state it receives.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *TurnState) (*Update, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, state *TurnState) (*Update, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Run(ctx context.Context, state *TurnState) (*Update, error) {
	return s.Fn(ctx, state)
}

// gracefulStage decorates a stage so its failure never terminates the turn.
// On error (or panic) it swallows the failure and returns an Update carrying
// an ErrorContext instead; a critical stage additionally forces the
// orchestrator to skip straight to response generation.
type gracefulStage struct {
	inner    Stage
	critical bool
	logger   *log.Logger
}

func Graceful(inner Stage, critical bool, logger *log.Logger) Stage {
	return &gracefulStage{inner: inner, critical: critical, logger: logger}
}

func (g *gracefulStage) Name() string { return g.inner.Name() }

func (g *gracefulStage) Run(ctx context.Context, state *TurnState) (update *Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = g.failureUpdate(state, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()

	update, err = g.inner.Run(ctx, state)
	if err == nil {
		return update, nil
	}
	return g.failureUpdate(state, err), nil
}

func (g *gracefulStage) failureUpdate(state *TurnState, cause error) *Update {
	errCtx := BuildErrorContext(g.Name(), cause, state)
	g.logger.Printf("[PIPELINE] stage %s degraded (%s): %s", g.Name(), errCtx.Kind, errCtx.TechnicalDetail)

	update := &Update{
		ErrorContext:   errCtx,
		PartialFailure: true,
		FailedStage:    g.Name(),
	}
	if g.critical {
		update.ForceResponse = true
	}
	return update
}
