package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldDaemon is the standardized structured logging key for daemon names.
	FieldDaemon = "daemon"
	// FieldPID is the standardized structured logging key for process identifiers.
	FieldPID = "pid"
	// FieldLaunchID is the standardized structured logging key for the per-launch UUID.
	FieldLaunchID = "launch_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type daemonKey struct{}

// WithDaemon returns a context that tags log lines with the daemon name.
func WithDaemon(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, daemonKey{}, name)
}

// DaemonFromContext returns the daemon name stored by WithDaemon.
func DaemonFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	name, ok := ctx.Value(daemonKey{}).(string)
	return name, ok && name != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if name, ok := DaemonFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldDaemon, name)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
