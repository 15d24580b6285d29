// Package logger routes the pipe library's slog output to other logging
// backends. The pipes themselves only know about *slog.Logger; this package
// supplies a zerolog-backed slog.Handler so applications standardized on
// zerolog get pipe lifecycle events in their own stream.
package logger

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// ZerologHandler is a slog.Handler that forwards records to a
// zerolog.Logger.
type ZerologHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

// NewZerologHandler wraps a zerolog.Logger as a slog.Handler.
func NewZerologHandler(logger zerolog.Logger) *ZerologHandler {
	return &ZerologHandler{logger: logger}
}

// NewZerolog is a convenience that returns a ready *slog.Logger backed by
// the given zerolog.Logger.
//
// Example:
//
//	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	p := pipe.NewTextPipe(pipe.WithLogger(logger.NewZerolog(zl)))
func NewZerolog(logger zerolog.Logger) *slog.Logger {
	return slog.New(NewZerologHandler(logger))
}

// Enabled reports whether the wrapped zerolog logger would emit at the
// given slog level.
func (h *ZerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	zl := h.logger.GetLevel()
	if zl == zerolog.Disabled {
		return false
	}
	return levelToZerolog(level) >= zl
}

// Handle emits the record through zerolog, including attributes accumulated
// via WithAttrs/WithGroup.
func (h *ZerologHandler) Handle(_ context.Context, rec slog.Record) error {
	evt := h.logger.WithLevel(levelToZerolog(rec.Level))
	for _, a := range h.attrs {
		evt = appendAttr(evt, h.prefix, a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		evt = appendAttr(evt, h.prefix, a)
		return true
	})
	evt.Msg(rec.Message)
	return nil
}

// WithAttrs returns a handler that includes attrs in every record.
func (h *ZerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = qualify(h.prefix, a.Key)
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup returns a handler that prefixes subsequent attribute keys with
// name, using dots as separators (zerolog has no native group nesting).
func (h *ZerologHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = qualify(h.prefix, name)
	return &clone
}

func appendAttr(evt *zerolog.Event, prefix string, a slog.Attr) *zerolog.Event {
	v := a.Value.Resolve()
	key := qualify(prefix, a.Key)
	switch v.Kind() {
	case slog.KindGroup:
		for _, ga := range v.Group() {
			evt = appendAttr(evt, key, ga)
		}
		return evt
	case slog.KindString:
		return evt.Str(key, v.String())
	case slog.KindInt64:
		return evt.Int64(key, v.Int64())
	case slog.KindUint64:
		return evt.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return evt.Float64(key, v.Float64())
	case slog.KindBool:
		return evt.Bool(key, v.Bool())
	case slog.KindDuration:
		return evt.Dur(key, v.Duration())
	case slog.KindTime:
		return evt.Time(key, v.Time())
	default:
		return evt.Interface(key, v.Any())
	}
}

func qualify(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// levelToZerolog maps slog levels onto zerolog's, rounding in-between
// custom levels down to the nearest named level.
func levelToZerolog(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
