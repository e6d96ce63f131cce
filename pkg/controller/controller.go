package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/beaconlog/pkg/record"
	"mercator-hq/beaconlog/pkg/rotation"
	"mercator-hq/beaconlog/pkg/scanner"
	"mercator-hq/beaconlog/pkg/telemetry/logging"
	"mercator-hq/beaconlog/pkg/telemetry/metrics"
	"mercator-hq/beaconlog/pkg/telemetry/tracing"
	"mercator-hq/beaconlog/pkg/upload"
	"mercator-hq/beaconlog/pkg/writer"
)

// ErrStopped is returned by Start after Shutdown.
var ErrStopped = errors.New("controller: stopped")

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("controller: already started")

// Start failure kinds that are not precondition reasons.
const startFailureError = "error"

// Config contains configuration for the scan cycle controller.
type Config struct {
	// Cadence is the timer period. Rounded down to whole seconds, minimum 1s.
	// Default: 30 seconds
	Cadence time.Duration

	// Continuous restarts scanning on the tick that ends a cycle.
	Continuous bool

	// Filter is passed to the scan subsystem on every start.
	Filter scanner.FilterConfig

	// StopTimeout bounds each call to Scanner.Stop.
	// Default: 5 seconds
	StopTimeout time.Duration

	// Writer configures the buffered writer. RunID is filled in by New.
	Writer writer.Config
}

// Dispatcher receives finalized files.
type Dispatcher interface {
	Dispatch(file *rotation.LogFile) error
	Close(ctx context.Context) error
	Stats() upload.Stats
}

// Deps are the collaborators of a Controller. Scanner, Processor and
// Dispatcher are required.
type Deps struct {
	Scanner       scanner.Scanner
	Processor     *record.Processor
	Dispatcher    Dispatcher
	Preconditions scanner.PreconditionHandler
	Metrics       *metrics.Collector

	// WriterOptions are appended to the options the controller passes to
	// writer.New.
	WriterOptions []writer.Option
}

// Controller owns the scan cadence and routes events from the scan
// subsystem through the record processor into the buffered writer.
//
// Transitions (Start, Tick, Shutdown) are serialized by a mutex. Events are
// handled on the scanner's delivery goroutine; the writer serializes them.
type Controller struct {
	cfg        Config
	scanner    scanner.Scanner
	processor  *record.Processor
	writer     *writer.Writer
	dispatcher Dispatcher
	precond    scanner.PreconditionHandler
	metrics    *metrics.Collector
	logger     *slog.Logger
	tracer     trace.Tracer
	runID      string
	now        func() time.Time

	mu        sync.Mutex
	state     atomic.Int32
	cron      *cron.Cron
	started   bool
	startedAt time.Time
	lastTick  time.Time
	cycle     atomic.Int64
	startErr  error
	baseCtx   context.Context

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewRunID returns a process-lifetime-unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// New creates a controller with a fresh run id and its writer.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Scanner == nil || deps.Processor == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("controller: scanner, processor and dispatcher are required")
	}
	if cfg.Cadence <= 0 {
		cfg.Cadence = 30 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}

	runID := NewRunID()
	cfg.Writer.RunID = runID

	c := &Controller{
		cfg:        cfg,
		scanner:    deps.Scanner,
		processor:  deps.Processor,
		dispatcher: deps.Dispatcher,
		precond:    deps.Preconditions,
		metrics:    deps.Metrics,
		logger:     slog.Default().With("component", "controller", "run_id", runID),
		tracer:     otel.Tracer("beaconlog/controller"),
		runID:      runID,
		now:        time.Now,
		baseCtx:    context.Background(),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
	}

	opts := []writer.Option{
		writer.WithMetrics(deps.Metrics),
		writer.WithFinalizeFunc(c.dispatch),
	}
	opts = append(opts, deps.WriterOptions...)

	w, err := writer.New(cfg.Writer, opts...)
	if err != nil {
		return nil, err
	}
	c.writer = w
	c.setState(StateIdle)

	return c, nil
}

// RunID returns the run identifier embedded in every file name.
func (c *Controller) RunID() string {
	return c.runID
}

// Writer returns the controller's buffered writer.
func (c *Controller) Writer() *writer.Writer {
	return c.writer
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	c.metrics.SetScanState(s.String())
}

// Start begins the first scan immediately and schedules Tick every
// Cadence. A failed first start is not an error: the controller stays Idle
// and retries on the next tick.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateStopped {
		return ErrStopped
	}
	if c.started {
		return ErrAlreadyStarted
	}

	c.started = true
	c.startedAt = c.now()
	c.baseCtx = logging.WithRunID(context.WithoutCancel(ctx), c.runID)

	c.cron.Schedule(cron.Every(c.cfg.Cadence), cron.FuncJob(func() {
		c.Tick(c.baseCtx)
	}))
	c.cron.Start()

	c.logger.InfoContext(c.baseCtx, "scan controller started",
		"cadence", c.cfg.Cadence,
		"continuous", c.cfg.Continuous,
		"mode", string(c.cfg.Filter.Mode),
		"directory", c.cfg.Writer.Directory,
	)

	c.beginScan(c.baseCtx)
	return nil
}

// Tick performs one timer transition: Scanning ends the cycle (and starts
// the next one in continuous mode), Idle starts scanning. Tick on a
// stopped controller does nothing.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastTick = c.now()

	switch c.State() {
	case StateStopped:
		return
	case StateScanning:
		c.endCycle(ctx)
		if c.cfg.Continuous {
			c.beginScan(ctx)
		}
	case StateIdle:
		c.beginScan(ctx)
	}
}

// beginScan asks the subsystem to start delivering events. Requires c.mu.
func (c *Controller) beginScan(ctx context.Context) {
	ctx, span := c.tracer.Start(ctx, "scan.start",
		trace.WithAttributes(attribute.String(tracing.AttrScanMode, string(c.cfg.Filter.Mode))),
	)
	defer span.End()

	err := c.scanner.Start(ctx, c.cfg.Filter, c.HandleEvent)
	if err != nil {
		c.startErr = err
		kind := startFailureError
		var perr *scanner.PreconditionError
		if errors.As(err, &perr) {
			kind = perr.Reason
			if c.precond != nil {
				c.precond.RequestPrecondition(ctx, perr)
			}
		}
		c.metrics.RecordScanStartFailure(kind)
		span.SetAttributes(attribute.String(tracing.AttrFailureKind, kind))
		tracing.SetError(span, err, "scan start failed")
		c.logger.WarnContext(ctx, "scan start failed, retrying on next tick",
			"kind", kind,
			"error", err,
		)
		return
	}

	c.startErr = nil
	cycle := c.cycle.Add(1)
	span.SetAttributes(tracing.CycleAttributes(c.runID, cycle)...)
	c.setState(StateScanning)
	c.logger.DebugContext(logging.WithCycle(ctx, cycle), "scanning")
}

// endCycle stops the subsystem and closes the cycle in the writer.
// Requires c.mu.
func (c *Controller) endCycle(ctx context.Context) {
	cycle := c.cycle.Load()
	ctx = logging.WithCycle(ctx, cycle)
	ctx, span := c.tracer.Start(ctx, "scan.cycle_end",
		trace.WithAttributes(tracing.CycleAttributes(c.runID, cycle)...),
	)
	defer span.End()

	c.stopScanner(ctx)
	c.setState(StateIdle)
	c.metrics.RecordScanCycle()

	if err := c.writer.EndCycle(c.now()); err != nil {
		tracing.SetError(span, err, "flush failed")
		c.logger.ErrorContext(ctx, "cycle flush failed, buffer retained", "error", err)
	}
}

func (c *Controller) stopScanner(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(ctx, c.cfg.StopTimeout)
	defer cancel()
	if err := c.scanner.Stop(stopCtx); err != nil {
		c.logger.ErrorContext(ctx, "scan stop failed", "error", err)
	}
}

// HandleEvent routes one callback event. It is the Handler passed to the
// scan subsystem. Events arriving outside Scanning are counted as late and
// dropped.
func (c *Controller) HandleEvent(ev scanner.Event) {
	c.metrics.ObservationReceived()

	if c.State() != StateScanning {
		c.metrics.ObservationLate()
		return
	}

	obs, reason := c.processor.Evaluate(ev)
	if reason != record.RejectNone {
		c.metrics.ObservationRejected(reason)
		return
	}
	c.metrics.ObservationAccepted()

	if err := c.writer.Accept(obs.Line()); err != nil {
		if errors.Is(err, writer.ErrClosed) {
			c.metrics.ObservationLate()
			return
		}
		c.logger.Debug("observation buffered, write pending", "error", err)
	}
}

// dispatch is the writer's finalize callback. It runs under the writer
// lock; Dispatcher.Dispatch never blocks.
func (c *Controller) dispatch(file *rotation.LogFile) {
	if err := c.dispatcher.Dispatch(file); err != nil {
		c.logger.Warn("file not dispatched, left on local storage",
			"path", file.Path,
			"error", err,
		)
	}
}

// Shutdown stops the timer and the subsystem, flushes and finalizes the
// open file, and closes the dispatcher. ctx bounds the dispatcher drain.
// It is idempotent: later calls return the first result.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		// Waits for a running Tick, which needs c.mu
		<-c.cron.Stop().Done()

		c.mu.Lock()
		defer c.mu.Unlock()

		ctx = logging.WithRunID(ctx, c.runID)
		ctx, span := c.tracer.Start(ctx, "scan.shutdown")
		defer span.End()

		if c.State() == StateScanning {
			c.stopScanner(ctx)
			c.metrics.RecordScanCycle()
		}
		c.setState(StateStopped)

		var errs []error
		if err := c.writer.ForceFlushAndFinalize(); err != nil {
			errs = append(errs, fmt.Errorf("finalize: %w", err))
		}
		if err := c.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher: %w", err))
		}
		c.shutdownErr = errors.Join(errs...)

		if c.shutdownErr != nil {
			tracing.SetError(span, c.shutdownErr, "shutdown incomplete")
			c.logger.ErrorContext(ctx, "scan controller stopped with errors", "error", c.shutdownErr)
		} else {
			c.logger.InfoContext(ctx, "scan controller stopped", "cycles", c.cycle.Load())
		}
	})
	return c.shutdownErr
}

// ScannerHealth returns the last start failure, or nil when the most
// recent start succeeded.
func (c *Controller) ScannerHealth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startErr
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	RunID          string        `json:"run_id"`
	State          State         `json:"state"`
	Cycle          int64         `json:"cycle"`
	Cadence        string        `json:"cadence"`
	StartedAt      time.Time     `json:"started_at,omitzero"`
	LastTick       time.Time     `json:"last_tick,omitzero"`
	LastStartError string        `json:"last_start_error,omitempty"`
	AcceptanceRSSI int           `json:"acceptance_rssi_floor"`
	Writer         writer.Status `json:"writer"`
	Upload         upload.Stats  `json:"upload"`
}

// Status returns a snapshot of the controller, its writer and dispatcher.
func (c *Controller) Status() Status {
	c.mu.Lock()
	s := Status{
		RunID:          c.runID,
		State:          c.State(),
		Cycle:          c.cycle.Load(),
		Cadence:        c.cfg.Cadence.String(),
		StartedAt:      c.startedAt,
		LastTick:       c.lastTick,
		AcceptanceRSSI: c.processor.Floor(),
	}
	if c.startErr != nil {
		s.LastStartError = c.startErr.Error()
	}
	c.mu.Unlock()

	s.Writer = c.writer.Status()
	s.Upload = c.dispatcher.Stats()
	return s
}
