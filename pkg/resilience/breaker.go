package resilience

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call when the breaker refuses the operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker states.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// BreakerConfig holds per-dependency thresholds.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMaxCalls int
}

// DefaultBreakerConfig mirrors the registry defaults: 5 consecutive failures
// open the breaker, recovery is probed after 60s with a single call.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker tracks consecutive failures of one external dependency.
// The OPEN→HALF_OPEN transition is evaluated lazily on the next state read.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	halfOpenCalls int

	now func() time.Time // test seam
}

func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// State returns the current state, lazily moving OPEN→HALF_OPEN once the
// recovery timeout has elapsed.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *CircuitBreaker) stateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
		b.state = StateHalfOpen
		b.halfOpenCalls = 0
	}
	return b.state
}

// Call runs op under the breaker. When OPEN it returns ErrCircuitOpen without
// invoking op. In HALF_OPEN at most HalfOpenMaxCalls concurrent probes are
// admitted; excess calls are rejected as if the breaker were open.
func (b *CircuitBreaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	switch b.stateLocked() {
	case StateOpen:
		b.mu.Unlock()
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.halfOpenCalls++
	}
	b.mu.Unlock()

	err := op(ctx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// RecordSuccess resets the consecutive-failure counter; a success while
// HALF_OPEN closes the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.halfOpenCalls = 0
	}
}

// RecordFailure increments the counter; reaching the threshold, or failing a
// HALF_OPEN probe, opens the breaker.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = StateOpen
		b.halfOpenCalls = 0
	}
}

// BreakerRegistry hands out one breaker per dependency name, created lazily
// with default thresholds. One registry instance is owned by the bootstrap
// container and shared by reference.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	defaults BreakerConfig
	logger   *log.Logger
}

func NewBreakerRegistry(defaults BreakerConfig, logger *log.Logger) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
		logger:   logger,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewCircuitBreaker(name, r.defaults)
		r.breakers[name] = b
		if r.logger != nil {
			r.logger.Printf("[BREAKER] Created breaker %q (threshold=%d, recovery=%s)",
				name, r.defaults.FailureThreshold, r.defaults.RecoveryTimeout)
		}
	}
	return b
}
