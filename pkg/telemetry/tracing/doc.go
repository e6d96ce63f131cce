// Package tracing provides OpenTelemetry tracing for beaconlog.
//
// New installs a global tracer provider exporting to an OTLP/gRPC
// collector, so components create spans with otel.Tracer without holding a
// reference to the Tracer. When tracing is disabled nothing is installed
// and spans are no-ops.
//
// Spans emitted by the pipeline:
//   - scan.start: one per attempt to start the scan subsystem
//   - scan.cycle_end: stop, flush and rotation decision at the end of a cycle
//   - scan.shutdown: final flush and dispatcher drain
//   - upload.dispatch: one per hand-off to the upload sink
//
// Sampling is parent-based with a configurable ratio.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
