package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Noop is a Provider that discards everything. It is the default for pipes
// constructed without WithMetrics.
type Noop struct{}

// Counter does nothing.
func (Noop) Counter(_ context.Context, _ string, _ int64, _ Labels) {}

// Gauge does nothing.
func (Noop) Gauge(_ context.Context, _ string, _ float64, _ Labels) {}

// Histogram does nothing.
func (Noop) Histogram(_ context.Context, _ string, _ float64, _ Labels) {}

// RecordDuration does nothing.
func (Noop) RecordDuration(_ context.Context, _ string, _ time.Duration, _ Labels) {}

// InMemory stores metrics in plain maps so tests can verify what a pipe
// recorded without standing up a real backend.
//
// Example:
//
//	provider := metrics.NewInMemory()
//	p := pipe.NewBytePipe(8, pipe.WithMetrics(provider, nil))
//	// ... exercise the pipe ...
//	if got := provider.CounterValue("streampipe_write_units_total", metrics.Labels{"side": "sink"}); got != 5 {
//	    t.Errorf("write units = %d, want 5", got)
//	}
type InMemory struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemory creates an empty in-memory provider.
func NewInMemory() *InMemory {
	return &InMemory{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// Counter increments a counter.
func (p *InMemory) Counter(_ context.Context, name string, value int64, labels Labels) {
	key := metricKey(name, labels)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters[key] += value
}

// Gauge adds value to a gauge (negative values decrease it).
func (p *InMemory) Gauge(_ context.Context, name string, value float64, labels Labels) {
	key := metricKey(name, labels)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gauges[key] += value
}

// Histogram appends a sample to a histogram series.
func (p *InMemory) Histogram(_ context.Context, name string, value float64, labels Labels) {
	key := metricKey(name, labels)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.histograms[key] = append(p.histograms[key], value)
}

// RecordDuration records d in seconds as a histogram sample.
func (p *InMemory) RecordDuration(ctx context.Context, name string, d time.Duration, labels Labels) {
	p.Histogram(ctx, name, d.Seconds(), labels)
}

// CounterValue returns the accumulated value of a counter, or 0 if it was
// never incremented.
func (p *InMemory) CounterValue(name string, labels Labels) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counters[metricKey(name, labels)]
}

// GaugeValue returns the current value of a gauge.
func (p *InMemory) GaugeValue(name string, labels Labels) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gauges[metricKey(name, labels)]
}

// HistogramSamples returns a copy of the samples recorded for a histogram.
func (p *InMemory) HistogramSamples(name string, labels Labels) []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	samples := p.histograms[metricKey(name, labels)]
	out := make([]float64, len(samples))
	copy(out, samples)
	return out
}

// metricKey flattens a name and label set into a stable map key.
func metricKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, labels[k])
	}
	return b.String()
}
