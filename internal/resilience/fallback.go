// Package resilience provides ordered failover across interchangeable
// provider backends.
//
// Report generation runs once per session, after the session has closed, so
// the failure mode that matters is a single unavailable backend at that one
// moment. [FallbackGroup] holds a primary and zero or more fallbacks of the
// same provider type and tries them in registration order until one succeeds.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails.
var ErrAllFailed = errors.New("all providers failed")

// entry pairs a provider value with the name used in failover logs.
type entry[T any] struct {
	name  string
	value T
}

// FallbackGroup wraps a primary and zero or more fallback instances of the
// same provider type, tried in registration order.
//
// Construction is not safe for concurrent use; execute only after all
// fallbacks are registered. Execution is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []entry[T]
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
// Additional fallbacks are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string) *FallbackGroup[T] {
	return &FallbackGroup[T]{
		entries: []entry[T]{{name: primaryName, value: primary}},
	}
}

// AddFallback appends a fallback provider, tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.entries = append(fg.entries, entry[T]{name: name, value: fallback})
}

// Primary returns the first registered provider. Useful for static metadata
// that does not participate in failover.
func (fg *FallbackGroup[T]) Primary() T {
	return fg.entries[0].value
}

// Len returns the number of registered providers including the primary.
func (fg *FallbackGroup[T]) Len() int {
	return len(fg.entries)
}

// ExecuteWithResult tries fn against each entry in order until one succeeds,
// returning that entry's result. A context cancellation or deadline stops the
// chain immediately: trying the next backend with a dead context would only
// add noise. Returns [ErrAllFailed] wrapped with the last error when every
// entry fails.
//
// This is a package-level function because Go does not support method-level
// type parameters.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		e := &fg.entries[i]
		result, err := fn(e.value)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
		slog.Warn("provider failed, trying next", "provider", e.name, "error", err)
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
