package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mercator-hq/beaconlog/pkg/record"
	"mercator-hq/beaconlog/pkg/rotation"
	"mercator-hq/beaconlog/pkg/telemetry/metrics"
)

// Flush triggers, used as the trigger label on the flushes metric.
const (
	TriggerSize     = "size"
	TriggerCycleEnd = "cycle_end"
	TriggerRotation = "rotation"
	TriggerShutdown = "shutdown"
)

// reasonShutdown labels the rotation performed by ForceFlushAndFinalize.
const reasonShutdown = "shutdown"

// Config contains configuration for the buffered writer.
type Config struct {
	// Directory is where log files are created.
	Directory string

	// RunID is embedded in every file name.
	RunID string

	// Policy decides flushes and rotations.
	Policy rotation.Policy

	// MaxBufferBytes bounds the pending buffer. 0 disables the bound.
	MaxBufferBytes int

	// Location decides the calendar day of a line. Default: time.Local
	Location *time.Location

	// SequenceBase is the sequence number of the first file of a day.
	SequenceBase int
}

// FinalizeFunc receives each non-empty file the writer finalizes. It is
// called with the writer lock held and must not block.
type FinalizeFunc func(file *rotation.LogFile)

// Writer owns the pending buffer and the single open log file.
//
// The buffer is an ordered queue of lines and rotation boundaries. A
// boundary finalizes the open file and opens the next one, so lines queued
// before a boundary always land in the old file and lines queued after it
// in the new one, even when a write fails and the queue is drained later.
// All methods are safe for concurrent use; a mutex serializes every
// mutation of the buffer and the open file.
type Writer struct {
	mu sync.Mutex

	cfg        Config
	policy     rotation.Policy
	open       OpenFunc
	onFinalize FinalizeFunc
	metrics    *metrics.Collector
	logger     *slog.Logger
	now        func() time.Time

	// Physical state: the open file and its handle
	current *rotation.LogFile
	handle  File

	// Logical state: where the next accepted line is destined
	target    *target
	window    rotation.CycleWindow
	lastSeq   map[rotation.Day]int
	queue     []entry
	bufBytes  int
	headDone  int // bytes of queue[0] already on disk
	closed    bool
	failures  int
	finalized int
	lost      int
	last      *rotation.LogFile
}

type target struct {
	day rotation.Day
	seq int
}

// entry is either a pending line or a rotation boundary.
type entry struct {
	line     record.LogLine
	boundary bool
	reason   rotation.Decision
	day      rotation.Day
	seq      int
}

// Option configures optional collaborators of a Writer.
type Option func(*Writer)

// WithOpenFunc replaces the function used to open log files.
func WithOpenFunc(open OpenFunc) Option {
	return func(w *Writer) { w.open = open }
}

// WithFinalizeFunc sets the callback receiving finalized files.
func WithFinalizeFunc(fn FinalizeFunc) Option {
	return func(w *Writer) { w.onFinalize = fn }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(w *Writer) { w.metrics = c }
}

// WithClock replaces time.Now for file timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// New creates a writer and its log directory.
func New(cfg Config, opts ...Option) (*Writer, error) {
	if cfg.Directory == "" {
		return nil, fmt.Errorf("writer: directory is required")
	}
	if cfg.RunID == "" {
		return nil, fmt.Errorf("writer: run id is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, &WriteError{Path: cfg.Directory, Op: "mkdir", Cause: err}
	}

	w := &Writer{
		cfg:     cfg,
		policy:  rotation.NewPolicy(cfg.Policy.SizeThreshold, cfg.Policy.CycleThreshold, cfg.Policy.SizeAction),
		open:    OpenAppend,
		logger:  slog.Default().With("component", "writer"),
		now:     time.Now,
		lastSeq: make(map[rotation.Day]int),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Accept appends a line to the buffer and executes the rotation decision
// for it. A day change flushes and finalizes the open file and opens the
// new day's file before the line is queued; the size
// trigger flushes the buffer (and rotates when the policy says so).
// Elapsed-cycle rotation is only evaluated by EndCycle.
//
// A returned *WriteError means the line was buffered but could not be
// written yet; it will be retried on the next flush.
func (w *Writer) Accept(line record.LogLine) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	day := rotation.DayOf(line.Timestamp, w.cfg.Location)
	decision := w.policy.Decide(w.targetFile(), day, w.bufBytes+line.Len())

	var err error
	switch decision {
	case rotation.RotateForNewDay:
		w.pushBoundary(decision, day, w.sequenceForDay(day))
		err = w.flush(TriggerRotation)
		w.pushLine(line)

	case rotation.RotateForSize:
		w.pushLine(line)
		// While flushes fail only the cycle end retries
		if w.failures > 0 {
			break
		}
		if w.policy.Closes(decision) {
			w.pushBoundary(decision, w.target.day, w.target.seq+1)
		}
		err = w.flush(TriggerSize)

	default:
		w.pushLine(line)
	}

	w.enforceBound()
	w.metrics.SetBufferBytes(w.bufBytes)
	return err
}

// EndCycle closes one scan cycle: it evaluates elapsed-cycle and day
// rotation, then flushes whatever is pending. It is a no-op before the
// first line was accepted.
func (w *Writer) EndCycle(now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.target == nil {
		return nil
	}

	// The cycle end flushes unconditionally, so the size trigger is moot here
	day := rotation.DayOf(now, w.cfg.Location)
	decision := w.policy.Decide(w.targetFile(), day, 0)

	switch decision {
	case rotation.RotateForNewDay:
		w.pushBoundary(decision, day, w.sequenceForDay(day))
	case rotation.RotateForElapsedCycles:
		w.pushBoundary(decision, w.target.day, w.target.seq+1)
	default:
		w.window.Advance()
	}

	err := w.flush(TriggerCycleEnd)
	w.metrics.SetBufferBytes(w.bufBytes)
	return err
}

// Flush writes pending lines to the open file without closing it.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	err := w.flush(TriggerCycleEnd)
	w.metrics.SetBufferBytes(w.bufBytes)
	return err
}

// ForceFlushAndFinalize flushes pending lines and finalizes the open file
// regardless of policy thresholds. Lines that cannot be written are counted
// as lost. Subsequent calls return nil and do nothing.
func (w *Writer) ForceFlushAndFinalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.flush(TriggerShutdown)
	if err != nil {
		lost := 0
		for _, e := range w.queue {
			if !e.boundary {
				lost++
			}
		}
		w.lose(lost, "shutdown flush failed")
	}

	if w.current != nil {
		if ferr := w.finalize(reasonShutdown); ferr != nil && err == nil {
			err = ferr
		}
	}

	w.queue = nil
	w.bufBytes = 0
	w.headDone = 0
	w.metrics.SetBufferBytes(0)
	return err
}

// targetFile describes the destination of the next line for the policy.
func (w *Writer) targetFile() *rotation.LogFile {
	if w.target == nil {
		return nil
	}
	return &rotation.LogFile{
		Day:                 w.target.day,
		Sequence:            w.target.seq,
		CyclesSinceRotation: w.window.CycleCount,
	}
}

// sequenceForDay returns the sequence for the first file of a day. A day
// seen before in this run (clock stepping back) continues its sequence.
func (w *Writer) sequenceForDay(day rotation.Day) int {
	if seq, ok := w.lastSeq[day]; ok {
		return seq + 1
	}
	return w.cfg.SequenceBase
}

func (w *Writer) pushLine(line record.LogLine) {
	w.queue = append(w.queue, entry{line: line})
	w.bufBytes += line.Len()
}

func (w *Writer) pushBoundary(reason rotation.Decision, day rotation.Day, seq int) {
	w.queue = append(w.queue, entry{boundary: true, reason: reason, day: day, seq: seq})
	w.target = &target{day: day, seq: seq}
	w.lastSeq[day] = seq
	w.window.Reset(day)
}

// flush drains the queue in order. It stops at the first failure and
// leaves the remaining entries queued.
func (w *Writer) flush(trigger string) error {
	if len(w.queue) == 0 {
		return nil
	}

	lines, bytes := 0, 0
	defer func() {
		if lines > 0 {
			w.metrics.LinesWritten(lines, bytes)
			w.metrics.RecordFlush(trigger)
		}
	}()

	for len(w.queue) > 0 {
		if w.queue[0].boundary {
			if err := w.rotate(w.queue[0]); err != nil {
				return w.fail(err)
			}
			w.popFront()
			continue
		}

		if w.current == nil {
			if err := w.openFile(w.target.day, w.target.seq); err != nil {
				return w.fail(err)
			}
		}

		// Batch consecutive lines into a single write
		end := 0
		for end < len(w.queue) && !w.queue[end].boundary {
			end++
		}
		size := -w.headDone
		for i := 0; i < end; i++ {
			size += w.queue[i].line.Len()
		}
		chunk := make([]byte, 0, size)
		chunk = append(chunk, w.queue[0].line.Text[w.headDone:]...)
		for i := 1; i < end; i++ {
			chunk = append(chunk, w.queue[i].line.Text...)
		}

		n, err := w.handle.Write(chunk)
		w.current.BytesWritten += int64(n)
		bytes += n
		lines += w.consume(n)
		if err == nil && n < len(chunk) {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(chunk))
		}
		if err != nil {
			return w.fail(&WriteError{Path: w.current.Path, Op: "write", Cause: err})
		}
	}

	if w.failures > 0 {
		w.logger.Info("log directory writable again", "failed_flushes", w.failures)
	}
	w.failures = 0
	return nil
}

// consume removes n written bytes from the front of the queue and returns
// the number of lines completed. A partially written line stays at the
// front with headDone recording its written prefix.
func (w *Writer) consume(n int) int {
	done := 0
	for n > 0 && len(w.queue) > 0 && !w.queue[0].boundary {
		rest := w.queue[0].line.Len() - w.headDone
		if n < rest {
			w.headDone += n
			return done
		}
		n -= rest
		w.bufBytes -= w.queue[0].line.Len()
		w.headDone = 0
		w.popFront()
		done++
	}
	return done
}

func (w *Writer) popFront() {
	w.queue[0] = entry{}
	w.queue = w.queue[1:]
	if len(w.queue) == 0 {
		w.queue = nil
	}
}

// rotate executes a boundary: finalize the open file, open the next one.
func (w *Writer) rotate(b entry) error {
	if w.current != nil {
		if err := w.finalize(b.reason.String()); err != nil {
			w.logger.Error("failed to close log file", "error", err)
		}
	}
	return w.openFile(b.day, b.seq)
}

func (w *Writer) openFile(day rotation.Day, seq int) error {
	path := filepath.Join(w.cfg.Directory, rotation.FileName(w.cfg.RunID, day, seq))

	handle, err := w.open(path)
	if err != nil {
		return &WriteError{Path: path, Op: "open", Cause: err}
	}

	w.handle = handle
	w.current = &rotation.LogFile{
		Path:     path,
		RunID:    w.cfg.RunID,
		Day:      day,
		Sequence: seq,
		State:    rotation.StateOpen,
		OpenedAt: w.now(),
	}

	w.logger.Debug("log file opened", "path", path, "day", day.String(), "sequence", seq)
	return nil
}

// finalize closes the open file and hands it to the finalize callback.
// Empty files are removed instead. Finalizing a file that is not open is a
// programming error.
func (w *Writer) finalize(reason string) error {
	f := w.current
	if f.State != rotation.StateOpen {
		panic(fmt.Sprintf("writer: finalize of %s file %s", f.State, f.Path))
	}

	var err error
	if serr := w.handle.Sync(); serr != nil {
		err = &WriteError{Path: f.Path, Op: "sync", Cause: serr}
	}
	if cerr := w.handle.Close(); cerr != nil && err == nil {
		err = &WriteError{Path: f.Path, Op: "close", Cause: cerr}
	}

	f.CyclesSinceRotation = w.window.CycleCount
	f.State = rotation.StateFinalized
	f.FinalizedAt = w.now()
	w.current = nil
	w.handle = nil
	w.metrics.RecordRotation(reason)

	if f.BytesWritten == 0 {
		if rerr := os.Remove(f.Path); rerr != nil && !os.IsNotExist(rerr) {
			w.logger.Warn("failed to remove empty log file", "path", f.Path, "error", rerr)
		}
		w.logger.Debug("empty log file discarded", "path", f.Path, "reason", reason)
		return err
	}

	w.logger.Info("log file finalized",
		"path", f.Path,
		"reason", reason,
		"bytes", f.BytesWritten,
		"sequence", f.Sequence,
	)

	w.finalized++
	last := *f
	w.last = &last
	if w.onFinalize != nil {
		w.onFinalize(f)
	}
	return err
}

func (w *Writer) fail(err error) error {
	w.failures++
	w.metrics.RecordFlushFailure()
	w.logger.Error("flush failed",
		"error", err,
		"consecutive_failures", w.failures,
		"buffered_bytes", w.bufBytes,
	)
	return err
}

// enforceBound drops the oldest whole lines while the buffer exceeds
// MaxBufferBytes. A partially written head line is never dropped.
func (w *Writer) enforceBound() {
	if w.cfg.MaxBufferBytes <= 0 || w.bufBytes <= w.cfg.MaxBufferBytes {
		return
	}

	dropped := 0
	kept := w.queue[:0:0]
	for i, e := range w.queue {
		if w.bufBytes > w.cfg.MaxBufferBytes && !e.boundary && !(i == 0 && w.headDone > 0) {
			w.bufBytes -= e.line.Len()
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	w.queue = kept
	w.lose(dropped, "buffer limit exceeded")
}

func (w *Writer) lose(n int, why string) {
	if n == 0 {
		return
	}
	w.lost += n
	w.metrics.LinesLost(n)
	w.logger.Error("observations lost", "count", n, "reason", why)
}

// ConsecutiveFailures returns the number of flushes that failed since the
// last successful one. A non-zero value is the degraded-mode signal.
func (w *Writer) ConsecutiveFailures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failures
}

// Status is a point-in-time snapshot of the writer.
type Status struct {
	Open                *rotation.LogFile `json:"open,omitempty"`
	LastFinalized       *rotation.LogFile `json:"last_finalized,omitempty"`
	BufferedLines       int               `json:"buffered_lines"`
	BufferedBytes       int               `json:"buffered_bytes"`
	CyclesSinceRotation int               `json:"cycles_since_rotation"`
	FilesFinalized      int               `json:"files_finalized"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	LinesLost           int               `json:"lines_lost"`
	Closed              bool              `json:"closed"`
}

// Status returns a snapshot of the writer state.
func (w *Writer) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Status{
		BufferedBytes:       w.bufBytes,
		CyclesSinceRotation: w.window.CycleCount,
		FilesFinalized:      w.finalized,
		ConsecutiveFailures: w.failures,
		LinesLost:           w.lost,
		Closed:              w.closed,
	}
	for _, e := range w.queue {
		if !e.boundary {
			s.BufferedLines++
		}
	}
	if w.current != nil {
		open := *w.current
		open.CyclesSinceRotation = w.window.CycleCount
		s.Open = &open
	}
	if w.last != nil {
		last := *w.last
		s.LastFinalized = &last
	}
	return s
}
