// Package telemetry groups the observability packages of beaconlog.
//
// # Components
//
//   - logging: slog-based structured logging with device address redaction
//   - metrics: Prometheus collectors for the scan, write and upload paths
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: component health checks and their HTTP handlers
//
// # Usage
//
//	logger, _ := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	logger.SetDefault()
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
// # Identifier Protection
//
// Hardware addresses (AA:BB:CC:DD:EE:FF) are scrubbed from log attributes
// unless telemetry.logging.redact_identifiers is false. Log files never
// contain them in the first place; they carry HashCodec tokens.
package telemetry
