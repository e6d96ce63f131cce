// Package metrics provides Prometheus metrics collection for beaconlog.
//
// # Metrics Categories
//
//   - Pipeline: observations received, accepted, rejected, late and lost;
//     lines and bytes written; flushes, flush failures, rotations and the
//     pending buffer size
//   - Scan: completed cycles, start failures and the controller state
//   - Upload: dispatch outcomes and duration, queue depth and pruned files
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.ObservationReceived()
//	collector.RecordRotation("new_day")
//	http.Handle("/metrics", collector.Handler())
//
// A nil *Collector is valid and records nothing.
package metrics
