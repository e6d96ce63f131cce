// Package health provides liveness and readiness checks for beaconlog.
//
// A Checker aggregates named component checks, each with an Impact.
// Liveness only reports that the process runs. Readiness runs every check
// with a per-check timeout and reports "unavailable" (HTTP 503) while a
// blocking component fails, or "degraded" (HTTP 200) while only degrading
// components fail. Failing checks carry the start of their failure streak.
//
// The pipeline registers:
//
//   - scanner (blocking): a failed scan start until the next success
//   - writer (degrading): flushes to local storage keep failing
//   - ledger (degrading): the upload ledger database does not answer
//
// Usage:
//
//	checker := health.New(5 * time.Second)
//	checker.Register("writer", health.Degrading, health.WriterCheck(w))
//	mux.HandleFunc("/health", checker.LivenessHandler())
//	mux.HandleFunc("/ready", checker.ReadinessHandler())
package health
