package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastOpts(maxRetries int, kinds ...Kind) RetryOptions {
	return RetryOptions{
		MaxRetries:     maxRetries,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		RetryableKinds: kinds,
	}
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastOpts(3), func(context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (fail twice then succeed)", calls)
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	wantErr := errors.New("request timeout")
	calls := 0
	err := Retry(context.Background(), fastOpts(2), func(context.Context) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the original error unchanged", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want maxRetries+1 = 3", calls)
	}
}

func TestRetryNonRetryableFailsFast(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastOpts(5), func(context.Context) error {
		calls++
		return errors.New("unmarshal failed: unexpected token")
	})

	if err == nil {
		t.Fatal("err = nil, want data error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (data errors must not retry)", calls)
	}
}

func TestRetryBreakerOpenIsRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastOpts(1), func(context.Context) error {
		calls++
		return ErrCircuitOpen
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (breaker-open is transient)", calls)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"timeout message", errors.New("request timeout after 5s"), KindTimeout},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"connect message", errors.New("failed to connect to host"), KindConnection},
		{"circuit open", ErrCircuitOpen, KindConnection},
		{"http 429", errors.New("upstream returned 429"), KindRateLimit},
		{"quota", errors.New("daily quota exceeded"), KindRateLimit},
		{"not found", errors.New("record not found"), KindNotFound},
		{"malformed json", errors.New("json unmarshal failed"), KindData},
		{"anything else", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapCallPreservesKind(t *testing.T) {
	raw := errors.New("connection refused")
	wrapped := WrapCall("profile-store", raw)

	var ce *CallError
	if !errors.As(wrapped, &ce) {
		t.Fatalf("wrapped = %T, want *CallError", wrapped)
	}
	if ce.Kind != KindConnection {
		t.Fatalf("Kind = %s, want connection", ce.Kind)
	}
	if !errors.Is(wrapped, raw) {
		t.Fatal("wrapped error must unwrap to the raw cause")
	}

	// Re-wrapping must not change the classification.
	again := WrapCall("other", wrapped)
	if KindOf(again) != KindConnection {
		t.Fatalf("KindOf after rewrap = %s, want connection", KindOf(again))
	}
}
