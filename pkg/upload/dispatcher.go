package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"

	"mercator-hq/beaconlog/pkg/rotation"
	"mercator-hq/beaconlog/pkg/telemetry/metrics"
	"mercator-hq/beaconlog/pkg/telemetry/tracing"
)

// Dispatch results, used as the result label on the dispatches metric.
const (
	ResultUploaded  = "uploaded"
	ResultFailed    = "failed"
	ResultAbandoned = "abandoned"
	ResultRejected  = "rejected"
)

// ledgerTimeout bounds each ledger write made by the worker.
const ledgerTimeout = 5 * time.Second

// cancelGrace is how long Close waits for the worker after cancelling an
// in-flight hand-off. A sink still running after that is detached.
const cancelGrace = 250 * time.Millisecond

// Config contains configuration for the upload dispatcher.
type Config struct {
	// QueueSize is the capacity of the dispatch queue.
	// Default: 64
	QueueSize int

	// Timeout bounds a single hand-off to the sink. 0 means no bound.
	// Default: 30 seconds
	Timeout time.Duration

	// DrainOnClose finishes queued hand-offs in Close. When false, queued
	// hand-offs are abandoned.
	// Default: true
	DrainOnClose bool

	// CloseTimeout bounds the drain in Close. Hand-offs still queued when
	// it expires are abandoned.
	// Default: 30 seconds
	CloseTimeout time.Duration
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:    64,
		Timeout:      30 * time.Second,
		DrainOnClose: true,
		CloseTimeout: 30 * time.Second,
	}
}

type job struct {
	file *rotation.LogFile
	meta Metadata
}

// Dispatcher hands finalized files to a Sink from a single background
// worker, so the caller never waits for the sink. Dispatch is best-effort:
// a failed hand-off is recorded and not retried, and the file stays on
// local storage.
type Dispatcher struct {
	sink    Sink
	config  Config
	ledger  *Ledger
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	queue    chan job
	seen     map[string]struct{}
	closed   bool
	abandon  bool
	inflight *job

	baseCtx   context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeDone chan struct{}

	uploaded  atomic.Int64
	failed    atomic.Int64
	abandoned atomic.Int64
	rejected  atomic.Int64
}

// DispatcherOption configures optional collaborators of a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLedger records every hand-off in l.
func WithLedger(l *Ledger) DispatcherOption {
	return func(d *Dispatcher) { d.ledger = l }
}

// WithDispatchMetrics sets the metrics collector.
func WithDispatchMetrics(c *metrics.Collector) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = c }
}

// WithDispatchClock replaces time.Now for ledger timestamps.
func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher and starts its worker.
func NewDispatcher(sink Sink, config Config, opts ...DispatcherOption) *Dispatcher {
	if sink == nil {
		sink = NopSink{}
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.CloseTimeout <= 0 {
		config.CloseTimeout = DefaultConfig().CloseTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sink:    sink,
		config:  config,
		logger:  slog.Default().With("component", "upload.dispatcher"),
		now:     time.Now,
		queue:   make(chan job, config.QueueSize),
		seen:    make(map[string]struct{}),
		baseCtx: ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		closeDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.worker()

	d.logger.Info("upload dispatcher started",
		"queue_size", config.QueueSize,
		"timeout", config.Timeout,
		"drain_on_close", config.DrainOnClose,
		"ledger", d.ledger != nil,
	)

	return d
}

// Dispatch enqueues a finalized file and returns immediately. On success
// the file transitions to Dispatched and the dispatcher owns it. A file is
// accepted at most once; a full queue rejects the file, which stays
// Finalized.
func (d *Dispatcher) Dispatch(file *rotation.LogFile) error {
	if file == nil {
		panic("upload: dispatch of nil file")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if _, ok := d.seen[file.Path]; ok {
		return ErrAlreadyDispatched
	}
	if file.State != rotation.StateFinalized {
		return fmt.Errorf("%w: %s is %s", ErrNotFinalized, file.Path, file.State)
	}

	select {
	case d.queue <- job{file: file, meta: MetadataOf(*file)}:
	default:
		d.rejected.Add(1)
		d.metrics.RecordDispatch(ResultRejected, 0)
		d.logger.Error("dispatch queue full, file left on local storage",
			"path", file.Path,
			"queue_size", d.config.QueueSize,
		)
		return ErrQueueFull
	}

	d.seen[file.Path] = struct{}{}
	file.State = rotation.StateDispatched
	d.metrics.SetQueueDepth(len(d.queue))

	d.logger.Debug("file queued for dispatch", "path", file.Path, "queue_depth", len(d.queue))
	return nil
}

// Close stops accepting files and shuts the worker down. With DrainOnClose
// it waits up to CloseTimeout, or until ctx is done, for queued hand-offs;
// whatever is left after that, or everything queued without DrainOnClose,
// is abandoned. An in-flight hand-off is cancelled, and if the sink does not
// return within a short grace period it is recorded as abandoned and left
// running. Close is idempotent.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		select {
		case <-d.closeDone:
		case <-ctx.Done():
		}
		return nil
	}
	d.closed = true
	if !d.config.DrainOnClose {
		d.abandon = true
	}
	pending := len(d.queue)
	close(d.queue)
	d.mu.Unlock()
	defer close(d.closeDone)

	d.logger.Info("shutting down upload dispatcher",
		"pending", pending,
		"drain", d.config.DrainOnClose,
	)

	timer := time.NewTimer(d.config.CloseTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-d.done:
	case <-timer.C:
		err = fmt.Errorf("upload: drain did not finish within %s", d.config.CloseTimeout)
	case <-ctx.Done():
		err = fmt.Errorf("upload: drain interrupted: %w", ctx.Err())
	}

	if err != nil {
		d.mu.Lock()
		d.abandon = true
		d.mu.Unlock()
		d.cancel()

		grace := time.NewTimer(cancelGrace)
		select {
		case <-d.done:
		case <-grace.C:
			d.detach()
		case <-ctx.Done():
			d.detach()
		}
		grace.Stop()
	}
	d.cancel()

	d.logger.Info("upload dispatcher shut down",
		"uploaded", d.uploaded.Load(),
		"failed", d.failed.Load(),
		"abandoned", d.abandoned.Load(),
	)
	return err
}

// detach abandons the in-flight hand-off and everything still queued
// without waiting for the worker. The worker discards the result of a
// detached hand-off when the sink eventually returns.
func (d *Dispatcher) detach() {
	d.mu.Lock()
	inflight := d.inflight
	d.inflight = nil
	d.mu.Unlock()

	if inflight != nil {
		d.logger.Warn("sink ignored cancellation, detaching hand-off", "path", inflight.file.Path)
		d.abandonJob(*inflight)
	}
	for j := range d.queue {
		d.abandonJob(j)
	}
}

// worker drains the queue until it is closed.
func (d *Dispatcher) worker() {
	defer close(d.done)

	for j := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		if !d.claim(&j) {
			d.abandonJob(j)
			continue
		}
		d.handle(&j)
	}
}

// claim marks j as the in-flight hand-off. It fails once Close has
// decided to abandon the remaining work.
func (d *Dispatcher) claim(j *job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.abandon {
		return false
	}
	d.inflight = j
	return true
}

// release clears the in-flight hand-off. It reports false when Close
// already detached j.
func (d *Dispatcher) release(j *job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight != j {
		return false
	}
	d.inflight = nil
	return true
}

func (d *Dispatcher) handle(j *job) {
	path := j.file.Path
	d.ledgerWrite("insert", func(ctx context.Context) error {
		return d.ledger.RecordQueued(ctx, path, j.meta)
	})

	ctx := d.baseCtx
	var cancel context.CancelFunc
	if d.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	ctx, span := otel.Tracer("beaconlog/upload").Start(ctx, "upload.dispatch")
	span.SetAttributes(tracing.FileAttributes(path, j.meta.Day.String(), j.meta.Sequence, j.meta.Bytes)...)
	defer span.End()

	start := time.Now()
	err := d.sink.Dispatch(ctx, path, j.meta)
	duration := time.Since(start)

	if !d.release(j) {
		d.logger.Warn("detached hand-off returned, result discarded",
			"path", path,
			"duration", duration,
			"error", err,
		)
		return
	}

	if err != nil {
		err = &DispatchError{Path: path, Cause: err}
		d.failed.Add(1)
		d.metrics.RecordDispatch(ResultFailed, duration)
		tracing.SetError(span, err, "dispatch failed")
		d.logger.Error("dispatch failed, file left on local storage",
			"path", path,
			"duration", duration,
			"error", err,
		)
	} else {
		d.uploaded.Add(1)
		d.metrics.RecordDispatch(ResultUploaded, duration)
		d.logger.Info("file dispatched",
			"path", path,
			"bytes", j.meta.Bytes,
			"duration", duration,
		)
	}

	d.ledgerWrite("update", func(ctx context.Context) error {
		return d.ledger.RecordResult(ctx, path, d.now(), err)
	})
}

func (d *Dispatcher) abandonJob(j job) {
	d.abandoned.Add(1)
	d.metrics.RecordDispatch(ResultAbandoned, 0)
	d.logger.Warn("dispatch abandoned at shutdown, file left on local storage", "path", j.file.Path)

	d.ledgerWrite("abandon", func(ctx context.Context) error {
		if err := d.ledger.RecordQueued(ctx, j.file.Path, j.meta); err != nil {
			return err
		}
		return d.ledger.RecordStatus(ctx, j.file.Path, d.now(), StatusAbandoned, "")
	})
}

// ledgerWrite runs fn against the ledger, if any. Ledger failures are
// logged and never affect the hand-off.
func (d *Dispatcher) ledgerWrite(op string, fn func(ctx context.Context) error) {
	if d.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		var lerr *LedgerError
		if !errors.As(err, &lerr) {
			err = &LedgerError{Driver: d.ledger.driver, Operation: op, Cause: err}
		}
		d.logger.Error("ledger write failed", "operation", op, "error", err)
	}
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	QueueDepth int   `json:"queue_depth"`
	Uploaded   int64 `json:"uploaded"`
	Failed     int64 `json:"failed"`
	Abandoned  int64 `json:"abandoned"`
	Rejected   int64 `json:"rejected"`
	Closed     bool  `json:"closed"`
}

// Stats returns a snapshot of dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		QueueDepth: len(d.queue),
		Uploaded:   d.uploaded.Load(),
		Failed:     d.failed.Load(),
		Abandoned:  d.abandoned.Load(),
		Rejected:   d.rejected.Load(),
		Closed:     d.closed,
	}
}
