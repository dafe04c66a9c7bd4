package logging

import (
	"context"
	"log/slog"
)

// Attribute keys shared across components so log lines stay greppable.
const (
	FieldComponent = "component"
	FieldRenderID  = "render_id"
	FieldScene     = "scene"
	FieldStage     = "stage"
	FieldPercent   = "percent"
)

// Error wraps an error as a slog attribute under the conventional "error" key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// String mirrors slog.String for symmetry with Error.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int mirrors slog.Int.
func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// NewComponentLogger returns a child logger tagged with the component name.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler drops all records. Useful in tests.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }
