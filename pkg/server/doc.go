// Package server provides the local admin HTTP endpoint.
//
// Routes:
//   - /health: liveness
//   - /ready: readiness (503 while the writer or scanner is degraded)
//   - /metrics: Prometheus metrics (path configurable)
//   - /status: JSON snapshot of the scan controller, writer and dispatcher
//   - /version: build information
//
// The server binds in Listen and serves in Serve, which returns after a
// graceful shutdown once its context is cancelled.
package server
