package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Provider using the Prometheus client library.
// Metric vectors are created lazily on first use, keyed by metric name, so
// pipes can emit without pre-registering anything.
type Prometheus struct {
	mu         sync.RWMutex
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	durationBuckets []float64
}

// PrometheusOption configures the Prometheus provider.
type PrometheusOption func(*Prometheus)

// WithDurationBuckets sets custom buckets for duration histograms.
func WithDurationBuckets(buckets []float64) PrometheusOption {
	return func(p *Prometheus) {
		p.durationBuckets = buckets
	}
}

// WithRegistry uses an existing Prometheus registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) PrometheusOption {
	return func(p *Prometheus) {
		p.registry = registry
	}
}

// NewPrometheus creates a Prometheus-backed metrics provider.
//
// By default it creates its own registry and registers the Go runtime and
// process collectors alongside the pipe metrics.
//
// Example:
//
//	provider := metrics.NewPrometheus()
//	p := pipe.NewBytePipe(64, pipe.WithMetrics(provider, metrics.Labels{"service": "relay"}))
//	http.Handle("/metrics", provider.Handler())
func NewPrometheus(opts ...PrometheusOption) *Prometheus {
	p := &Prometheus{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		durationBuckets: []float64{
			0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.registry.MustRegister(collectors.NewGoCollector())
	p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return p
}

// Counter increments a counter metric.
func (p *Prometheus) Counter(_ context.Context, name string, value int64, labels Labels) {
	p.getOrCreateCounter(name, labels).With(prometheus.Labels(labels)).Add(float64(value))
}

// Gauge adds value to a gauge metric (negative values decrease it).
func (p *Prometheus) Gauge(_ context.Context, name string, value float64, labels Labels) {
	p.getOrCreateGauge(name, labels).With(prometheus.Labels(labels)).Add(value)
}

// Histogram records a value in a histogram.
func (p *Prometheus) Histogram(_ context.Context, name string, value float64, labels Labels) {
	p.getOrCreateHistogram(name, labels).With(prometheus.Labels(labels)).Observe(value)
}

// RecordDuration records a duration in seconds in a histogram.
func (p *Prometheus) RecordDuration(_ context.Context, name string, d time.Duration, labels Labels) {
	p.getOrCreateHistogram(name, labels).With(prometheus.Labels(labels)).Observe(d.Seconds())
}

// Handler returns an HTTP handler for Prometheus scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) getOrCreateCounter(name string, labels Labels) *prometheus.CounterVec {
	p.mu.RLock()
	counter, exists := p.counters[name]
	p.mu.RUnlock()
	if exists {
		return counter
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if counter, exists = p.counters[name]; exists {
		return counter
	}

	counter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Counter for " + name,
	}, labelNames(labels))
	p.registry.MustRegister(counter)
	p.counters[name] = counter
	return counter
}

func (p *Prometheus) getOrCreateGauge(name string, labels Labels) *prometheus.GaugeVec {
	p.mu.RLock()
	gauge, exists := p.gauges[name]
	p.mu.RUnlock()
	if exists {
		return gauge
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gauge, exists = p.gauges[name]; exists {
		return gauge
	}

	gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Gauge for " + name,
	}, labelNames(labels))
	p.registry.MustRegister(gauge)
	p.gauges[name] = gauge
	return gauge
}

func (p *Prometheus) getOrCreateHistogram(name string, labels Labels) *prometheus.HistogramVec {
	p.mu.RLock()
	histogram, exists := p.histograms[name]
	p.mu.RUnlock()
	if exists {
		return histogram
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if histogram, exists = p.histograms[name]; exists {
		return histogram
	}

	histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Histogram for " + name,
		Buckets: p.durationBuckets,
	}, labelNames(labels))
	p.registry.MustRegister(histogram)
	p.histograms[name] = histogram
	return histogram
}

func labelNames(labels Labels) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}
