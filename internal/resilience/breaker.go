// Package resilience keeps the transcription path alive when a recognition
// backend degrades.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a failing backend. [FallbackGroup] composes several
// backends with per-entry breakers, and [SourceFallback] applies the group to
// [stt.Source] so a session falls over to a healthy recognizer instead of
// dying mid-rehearsal.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// open and the reset timeout has not elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through; their
	// outcome decides whether the breaker closes again or re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

const (
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
	defaultProbeBudget  = 3
)

// BreakerOption is a functional option for configuring a [CircuitBreaker].
type BreakerOption func(*CircuitBreaker)

// WithMaxFailures sets the consecutive-failure count that opens the breaker.
// Default: 5.
func WithMaxFailures(n int) BreakerOption {
	return func(cb *CircuitBreaker) { cb.maxFailures = n }
}

// WithResetTimeout sets how long the breaker stays open before probing.
// Default: 30s.
func WithResetTimeout(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) { cb.resetTimeout = d }
}

// WithProbeBudget sets the number of half-open probe calls. Default: 3.
func WithProbeBudget(n int) BreakerOption {
	return func(cb *CircuitBreaker) { cb.probeBudget = n }
}

// WithBreakerClock replaces the wall clock, for tests.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// CircuitBreaker implements the three-state circuit breaker pattern around an
// arbitrary fallible call.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	probeBudget  int
	now          func() time.Time
	logger       *slog.Logger

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probes      int
	probeFails  int
}

// NewCircuitBreaker creates a closed breaker. name labels it in logs.
func NewCircuitBreaker(name string, opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxFailures:  defaultMaxFailures,
		resetTimeout: defaultResetTimeout,
		probeBudget:  defaultProbeBudget,
		now:          time.Now,
		logger:       slog.Default().With("component", "resilience.breaker", "name", name),
	}
	for _, o := range opts {
		o(cb)
	}
	return cb
}

// Execute runs fn unless the breaker rejects the call. Open breakers return
// [ErrCircuitOpen] without calling fn; half-open breakers admit calls only
// within the probe budget.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeFails = 0
		cb.logger.Info("circuit half-open, probing")
	case StateHalfOpen:
		if cb.probes >= cb.probeBudget {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	probing := cb.state == StateHalfOpen
	if probing {
		cb.probes++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.recordFailure(probing)
	} else {
		cb.recordSuccess(probing)
	}
	return err
}

// recordFailure must be called with cb.mu held.
func (cb *CircuitBreaker) recordFailure(probing bool) {
	cb.lastFailure = cb.now()

	if probing {
		cb.probeFails++
		// One failed probe re-opens immediately.
		cb.state = StateOpen
		cb.failures = cb.maxFailures
		cb.logger.Warn("circuit re-opened after failed probe")
		return
	}

	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures)
	}
}

// recordSuccess must be called with cb.mu held.
func (cb *CircuitBreaker) recordSuccess(probing bool) {
	if !probing {
		cb.failures = 0
		return
	}
	if cb.probes-cb.probeFails >= cb.probeBudget {
		cb.state = StateClosed
		cb.failures = 0
		cb.probes = 0
		cb.probeFails = 0
		cb.logger.Info("circuit closed after successful probes")
	}
}

// State returns the breaker's state. An open breaker whose reset timeout has
// elapsed reports half-open; the transition itself happens on the next
// [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed, clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeFails = 0
}
