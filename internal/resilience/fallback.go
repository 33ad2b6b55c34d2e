package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry of a [FallbackGroup] fails or sits
// behind an open breaker.
var ErrAllFailed = errors.New("resilience: all backends failed")

// entry pairs a backend with its dedicated circuit breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup wraps a primary and zero or more fallback backends of the
// same type. Failing or open-circuit entries are skipped in registration
// order. Register all entries before first use; the entry list is not
// mutex-guarded.
type FallbackGroup[T any] struct {
	entries     []entry[T]
	breakerOpts []BreakerOption
	logger      *slog.Logger
}

// NewFallbackGroup creates a group with primary as the first entry. The
// breaker options apply to every entry's breaker.
func NewFallbackGroup[T any](primary T, name string, breakerOpts ...BreakerOption) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{
		breakerOpts: breakerOpts,
		logger:      slog.Default().With("component", "resilience.fallback"),
	}
	fg.add(name, primary)
	return fg
}

// AddFallback appends a backend tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.add(name, fallback)
}

func (fg *FallbackGroup[T]) add(name string, value T) {
	fg.entries = append(fg.entries, entry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(name, fg.breakerOpts...),
	})
}

// Execute tries fn against each entry until one succeeds. Returns
// [ErrAllFailed] wrapping the last error when none does.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry until one succeeds, returning
// its result. A package-level function because Go methods cannot introduce
// type parameters.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		e := &fg.entries[i]
		var result R
		err := e.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(e.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			fg.logger.Debug("skipping backend, circuit open", "backend", e.name)
		} else {
			fg.logger.Warn("backend failed, trying next", "backend", e.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
