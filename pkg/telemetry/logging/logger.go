package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/beaconlog/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in plain text format.
	FormatText LogFormat = "text"
)

// Logger provides structured logging with identifier redaction and run
// context propagation.
type Logger struct {
	// slog is the underlying structured logger
	slog *slog.Logger

	// level is the minimum log level
	level slog.Level

	// format is the output format
	format LogFormat
}

// Config contains configuration for the Logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string

	// Format is the output format ("json", "text")
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// RedactIdentifiers scrubs hardware addresses and secrets from attributes
	RedactIdentifiers bool

	// RedactPatterns contains additional redaction patterns
	RedactPatterns []config.RedactPattern

	// Writer is the output writer (defaults to os.Stderr)
	Writer io.Writer
}

// FromConfig converts the logging section of the configuration file.
func FromConfig(cfg config.LoggingConfig, w io.Writer) Config {
	return Config{
		Level:             cfg.Level,
		Format:            cfg.Format,
		AddSource:         cfg.AddSource,
		RedactIdentifiers: cfg.RedactIdentifiers,
		RedactPatterns:    cfg.RedactPatterns,
		Writer:            w,
	}
}

// New creates a new Logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	handler = &contextHandler{next: handler}
	if cfg.RedactIdentifiers {
		handler = &redactingHandler{next: handler, redactor: NewRedactor(cfg.RedactPatterns)}
	}

	return &Logger{
		slog:   slog.New(handler),
		level:  level,
		format: format,
	}, nil
}

// Slog returns the underlying *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// SetDefault installs the logger as the process-wide slog default, so
// components using slog.Default() inherit redaction and run context.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.slog)
}

// Level returns the minimum level that is logged.
func (l *Logger) Level() slog.Level {
	return l.level
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Log(context.Background(), slog.LevelError, msg, args...)
}

// InfoContext logs an info message including run context fields.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.Log(ctx, slog.LevelInfo, msg, args...)
}

// ErrorContext logs an error message including run context fields.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.Log(ctx, slog.LevelError, msg, args...)
}

// With creates a new logger with additional fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		level:  l.level,
		format: l.format,
	}
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// parseFormat parses a log format string into LogFormat.
func parseFormat(formatStr string) (LogFormat, error) {
	switch formatStr {
	case "json", "JSON", "":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
