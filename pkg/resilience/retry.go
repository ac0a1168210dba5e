package resilience

import (
	"context"
	"time"
)

// RetryOptions bounds the retry loop.
type RetryOptions struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Retryable kinds. Empty means the transient set (timeout, connection,
	// rate_limit).
	RetryableKinds []Kind
}

// DefaultRetryOptions matches the defaults used for embedding and profile
// store calls.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: 2,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

func (o RetryOptions) retryable(k Kind) bool {
	if len(o.RetryableKinds) == 0 {
		return Retryable(k)
	}
	for _, rk := range o.RetryableKinds {
		if rk == k {
			return true
		}
	}
	return false
}

// Retry attempts op up to MaxRetries+1 times with capped exponential backoff
// between attempts (never after the final one). Only errors whose classified
// kind is retryable are retried; anything else propagates immediately. On
// exhaustion the last error is returned unchanged.
func Retry(ctx context.Context, opts RetryOptions, op func(ctx context.Context) error) error {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 200 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !opts.retryable(KindOf(lastErr)) {
			return lastErr
		}
		if attempt == opts.MaxRetries {
			break
		}

		delay := opts.BaseDelay << uint(attempt)
		if delay > opts.MaxDelay || delay <= 0 {
			delay = opts.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
