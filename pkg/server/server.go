package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/beaconlog/pkg/config"
	"mercator-hq/beaconlog/pkg/telemetry/health"
	"mercator-hq/beaconlog/pkg/telemetry/metrics"
)

// StatusFunc returns a JSON-encodable snapshot of the pipeline.
type StatusFunc func() any

// Deps are the handlers' data sources. Any of them may be nil, which
// leaves the corresponding endpoint unregistered.
type Deps struct {
	Checker *health.Checker
	Metrics *metrics.Collector
	Status  StatusFunc
	Version string
}

// Server is the local admin HTTP endpoint exposing health, readiness,
// metrics and the controller status.
type Server struct {
	config       config.AdminConfig
	metricsPath  string
	deps         Deps
	httpServer   *http.Server
	listener     net.Listener
	logger       *slog.Logger
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates an admin server. metricsPath is where metrics are served.
func New(cfg config.AdminConfig, metricsPath string, deps Deps) *Server {
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = config.DefaultAdminShutdownTimeout
	}
	return &Server{
		config:      cfg,
		metricsPath: metricsPath,
		deps:        deps,
		logger:      slog.Default().With("component", "server"),
	}
}

// Listen binds the listen address. It is separate from Serve so callers
// learn about a busy port before the pipeline starts.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.isRunning = true
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve serves requests until ctx is cancelled, then shuts down
// gracefully. Listen must be called first.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.RLock()
	srv, ln := s.httpServer, s.listener
	s.mu.RUnlock()
	if srv == nil {
		return fmt.Errorf("server is not listening")
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting admin server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()
		if !running {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		s.logger.Info("admin server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.deps.Checker != nil {
		mux.HandleFunc("/health", s.deps.Checker.LivenessHandler())
		mux.HandleFunc("/ready", s.deps.Checker.ReadinessHandler())
	}
	if s.deps.Metrics != nil {
		mux.Handle(s.metricsPath, s.deps.Metrics.Handler())
	}
	if s.deps.Status != nil {
		mux.HandleFunc("/status", s.statusHandler)
	}
	mux.HandleFunc("/version", health.VersionHandler(s.deps.Version, "", ""))

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger, handler)
	handler = recoveryMiddleware(s.logger, handler)
	return handler
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(s.deps.Status())
}
