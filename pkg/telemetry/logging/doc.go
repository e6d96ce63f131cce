// Package logging provides structured logging with identifier redaction.
//
// The package wraps log/slog. A Logger built with RedactIdentifiers scrubs
// Bluetooth hardware addresses and secret-bearing attributes before output,
// and adds the run context (run_id, cycle, file) carried in a
// context.Context:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	logger.SetDefault()
//
//	ctx = logging.WithRunID(ctx, runID)
//	slog.InfoContext(ctx, "scan started") // includes run_id
package logging
