package pipe

import (
	"log/slog"
	"time"

	"github.com/calque-ai/go-streampipe/pkg/metrics"
)

// DefaultPollInterval is how often the liveness monitor re-checks the
// endpoint registries while goroutines are blocked. Purely a tuning
// parameter; no caller-visible behavior depends on its exact value.
const DefaultPollInterval = 100 * time.Millisecond

// DefaultRingThreshold is the largest rune-pipe capacity served by the
// fixed ring buffer; anything above it (and every unbounded pipe) uses the
// growable queue.
const DefaultRingThreshold = 1024

// DefaultMetricNamespace prefixes every metric a pipe records
// (e.g. "streampipe_write_units_total").
const DefaultMetricNamespace = "streampipe"

type settings struct {
	pollInterval  time.Duration
	ringThreshold int
	logger        *slog.Logger
	metrics       metrics.Provider
	namespace     string
	name          string

	labels       metrics.Labels
	sourceLabels metrics.Labels
	sinkLabels   metrics.Labels
}

// Option configures a pipe at construction.
type Option func(*settings)

// WithPollInterval sets the liveness monitor's polling cadence. A zero or
// negative interval disables the monitor entirely; abandonment is then only
// detected through the garbage collector's cleanup callbacks.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		s.pollInterval = d
	}
}

// WithRingThreshold overrides the capacity above which a rune pipe switches
// from the fixed ring buffer to the growable queue.
func WithRingThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.ringThreshold = n
		}
	}
}

// WithLogger sets the logger used for pipe lifecycle events, most notably
// abandonment detection. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics instruments the pipe through the given provider. The labels
// are applied to every metric the pipe records; a "side" label distinguishes
// source from sink samples. Defaults to the no-op provider.
func WithMetrics(provider metrics.Provider, labels metrics.Labels) Option {
	return func(s *settings) {
		if provider != nil {
			s.metrics = provider
		}
		s.labels = labels
	}
}

// WithName names the pipe in logs and in the "pipe" metric label. Useful
// when one process runs several pipes against the same provider.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithMetricNamespace overrides the metric name prefix.
func WithMetricNamespace(ns string) Option {
	return func(s *settings) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		pollInterval:  DefaultPollInterval,
		ringThreshold: DefaultRingThreshold,
		logger:        slog.Default(),
		metrics:       metrics.Noop{},
		namespace:     DefaultMetricNamespace,
		name:          "pipe",
	}
	for _, opt := range opts {
		opt(&s)
	}

	base := metrics.Labels{"pipe": s.name}.Merge(s.labels)
	s.labels = base
	s.sourceLabels = base.Merge(metrics.Labels{"side": "source"})
	s.sinkLabels = base.Merge(metrics.Labels{"side": "sink"})
	return s
}

func (s *settings) metricName(suffix string) string {
	return s.namespace + "_" + suffix
}

func (s *settings) roleLabels(r role) metrics.Labels {
	if r == sourceRole {
		return s.sourceLabels
	}
	return s.sinkLabels
}
