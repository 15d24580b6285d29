// Package config loads pipe tuning defaults from a YAML file, a .env file,
// and STREAMPIPE_* environment variables, in increasing order of
// precedence. Everything here is optional: an empty Config is usable and
// matches the library's built-in defaults.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/calque-ai/go-streampipe/pkg/logger"
	"github.com/calque-ai/go-streampipe/pkg/pipe"
)

// LogConfig selects the backend and verbosity for pipe lifecycle logging.
type LogConfig struct {
	// Level is a slog level name: "debug", "info", "warn", or "error".
	Level string `yaml:"level"`
	// Format is "zerolog" (structured JSON through zerolog) or "text"
	// (slog's text handler).
	Format string `yaml:"format"`
}

// Config carries the pipe family's tunables.
type Config struct {
	// PollInterval is the liveness monitor cadence.
	PollInterval time.Duration `yaml:"-"`
	// RingThreshold is the largest rune-pipe capacity backed by the
	// fixed ring buffer.
	RingThreshold int `yaml:"ring_threshold"`
	// MetricNamespace prefixes every metric name.
	MetricNamespace string `yaml:"metric_namespace"`

	Log LogConfig `yaml:"log"`
}

// fileConfig is the YAML shape. Durations are strings ("100ms") so config
// files stay readable.
type fileConfig struct {
	PollInterval    string    `yaml:"poll_interval"`
	RingThreshold   int       `yaml:"ring_threshold"`
	MetricNamespace string    `yaml:"metric_namespace"`
	Log             LogConfig `yaml:"log"`
}

// Default returns the library's built-in defaults.
func Default() Config {
	return Config{
		PollInterval:    pipe.DefaultPollInterval,
		RingThreshold:   pipe.DefaultRingThreshold,
		MetricNamespace: pipe.DefaultMetricNamespace,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from up to three layers: a .env file in the working
// directory (if present), the YAML file at path (skipped when path is
// empty, an error when path is set but unreadable), and STREAMPIPE_*
// environment variables, which win over everything.
//
// Recognized variables: STREAMPIPE_POLL_INTERVAL (duration),
// STREAMPIPE_RING_THRESHOLD (int), STREAMPIPE_METRIC_NAMESPACE,
// STREAMPIPE_LOG_LEVEL, STREAMPIPE_LOG_FORMAT.
func Load(path string) (Config, error) {
	// A missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		if fc.PollInterval != "" {
			d, err := time.ParseDuration(fc.PollInterval)
			if err != nil {
				return Config{}, fmt.Errorf("parse poll_interval: %w", err)
			}
			cfg.PollInterval = d
		}
		if fc.RingThreshold > 0 {
			cfg.RingThreshold = fc.RingThreshold
		}
		if fc.MetricNamespace != "" {
			cfg.MetricNamespace = fc.MetricNamespace
		}
		if fc.Log.Level != "" {
			cfg.Log.Level = fc.Log.Level
		}
		if fc.Log.Format != "" {
			cfg.Log.Format = fc.Log.Format
		}
	}

	cfg.PollInterval = envDuration("STREAMPIPE_POLL_INTERVAL", cfg.PollInterval)
	cfg.RingThreshold = envInt("STREAMPIPE_RING_THRESHOLD", cfg.RingThreshold)
	cfg.MetricNamespace = envString("STREAMPIPE_METRIC_NAMESPACE", cfg.MetricNamespace)
	cfg.Log.Level = envString("STREAMPIPE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString("STREAMPIPE_LOG_FORMAT", cfg.Log.Format)

	return cfg, nil
}

// PipeOptions translates the config into pipe construction options.
//
// Example:
//
//	cfg, err := config.Load("streampipe.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts := cfg.PipeOptions()
//	opts = append(opts, pipe.WithLogger(cfg.BuildLogger(os.Stderr)))
//	p := pipe.NewRunePipe(128, opts...)
func (c Config) PipeOptions() []pipe.Option {
	var opts []pipe.Option
	// Zero values mean "unset" here and keep the library defaults; a
	// negative PollInterval explicitly disables the liveness monitor.
	if c.PollInterval != 0 {
		opts = append(opts, pipe.WithPollInterval(c.PollInterval))
	}
	if c.RingThreshold > 0 {
		opts = append(opts, pipe.WithRingThreshold(c.RingThreshold))
	}
	if c.MetricNamespace != "" {
		opts = append(opts, pipe.WithMetricNamespace(c.MetricNamespace))
	}
	return opts
}

// BuildLogger constructs the slog.Logger described by the Log section,
// writing to w.
func (c Config) BuildLogger(w io.Writer) *slog.Logger {
	level := parseLevel(c.Log.Level)
	if c.Log.Format == "zerolog" {
		zl := zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger()
		return logger.NewZerolog(zl)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level <= slog.LevelDebug:
		return zerolog.DebugLevel
	case level <= slog.LevelInfo:
		return zerolog.InfoLevel
	case level <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
