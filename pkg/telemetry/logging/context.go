package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for the process run identifier.
	RunIDKey contextKey = "run_id"

	// CycleKey is the context key for the scan cycle number.
	CycleKey contextKey = "cycle"

	// FileKey is the context key for the log file being handled.
	FileKey contextKey = "file"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithCycle adds a scan cycle number to the context.
func WithCycle(ctx context.Context, cycle int64) context.Context {
	return context.WithValue(ctx, CycleKey, cycle)
}

// GetCycle retrieves the scan cycle number from the context.
func GetCycle(ctx context.Context) (int64, bool) {
	cycle, ok := ctx.Value(CycleKey).(int64)
	return cycle, ok
}

// WithFile adds a log file path to the context.
func WithFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, FileKey, path)
}

// GetFile retrieves the log file path from the context.
func GetFile(ctx context.Context) string {
	if path, ok := ctx.Value(FileKey).(string); ok {
		return path
	}
	return ""
}

// contextAttrs extracts the run context fields present in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if runID := GetRunID(ctx); runID != "" {
		attrs = append(attrs, slog.String(string(RunIDKey), runID))
	}
	if cycle, ok := GetCycle(ctx); ok {
		attrs = append(attrs, slog.Int64(string(CycleKey), cycle))
	}
	if path := GetFile(ctx); path != "" {
		attrs = append(attrs, slog.String(string(FileKey), path))
	}

	return attrs
}
