// Package metrics defines the instrumentation surface used by the pipe
// family and provides Prometheus, in-memory, and no-op implementations.
//
// Pipes record their traffic through a Provider so the library works with
// any monitoring backend: plug in the Prometheus provider for production
// scraping, the in-memory provider for tests, or nothing at all (the pipes
// default to the no-op provider).
package metrics

import (
	"context"
	"time"
)

// Provider is the interface pipes record through. Three metric shapes cover
// everything the pipe family emits:
//   - Counter: a value that only goes up (units written, abandonment events)
//   - Gauge: a value that can go up and down (current buffer occupancy);
//     this implementation uses Add semantics, pass negative values to decrease
//   - Histogram: a distribution (time spent blocked in a wait)
type Provider interface {
	Counter(ctx context.Context, name string, value int64, labels Labels)
	Gauge(ctx context.Context, name string, value float64, labels Labels)
	Histogram(ctx context.Context, name string, value float64, labels Labels)

	// RecordDuration converts d to seconds and records it as a histogram.
	RecordDuration(ctx context.Context, name string, d time.Duration, labels Labels)
}

// Labels add dimensions to a metric, e.g. which pipe and which side of it a
// sample came from.
type Labels map[string]string

// Merge combines two label sets into a new one. On key collision the value
// from other wins.
func (l Labels) Merge(other Labels) Labels {
	result := make(Labels, len(l)+len(other))
	for k, v := range l {
		result[k] = v
	}
	for k, v := range other {
		result[k] = v
	}
	return result
}
