package resilience

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a dependency failure into a small closed set. Classification
// happens once, at the boundary where the raw error is received; everything
// above works with the typed kind.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindRateLimit  Kind = "rate_limit"
	KindNotFound   Kind = "not_found"
	KindData       Kind = "data"
	KindUnknown    Kind = "unknown"
)

// CallError wraps a raw dependency error with its classified kind and the
// dependency name it came from.
type CallError struct {
	Kind       Kind
	Dependency string
	Cause      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed (%s): %v", e.Dependency, e.Kind, e.Cause)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// WrapCall classifies err and attaches the dependency name. Returns nil for a
// nil error. Already-classified errors pass through unchanged.
func WrapCall(dependency string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{Kind: Classify(err), Dependency: dependency, Cause: err}
}

// KindOf returns the classified kind of err, classifying on the fly when err
// was never wrapped at a boundary.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Classify(err)
}

// Classify maps a raw error to a Kind by substring matching against the error
// text, first match wins in priority order. This is the single place where
// string matching happens.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrCircuitOpen) {
		return KindConnection
	}
	msg := strings.ToLower(fmt.Sprintf("%T: %s", err, err.Error()))

	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return KindTimeout
	case containsAny(msg, "connect", "circuit", "connection refused", "broken pipe", "no such host"):
		return KindConnection
	case containsAny(msg, "429", "rate limit", "quota", "too many requests"):
		return KindRateLimit
	case containsAny(msg, "not found", "404", "no rows", "record not found"):
		return KindNotFound
	case containsAny(msg, "unmarshal", "invalid", "malformed", "parse", "validation"):
		return KindData
	default:
		return KindUnknown
	}
}

// Retryable reports whether a kind is transient enough to retry.
func Retryable(k Kind) bool {
	return k == KindTimeout || k == KindConnection || k == KindRateLimit
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
