package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/beaconlog/pkg/record"
	"mercator-hq/beaconlog/pkg/rotation"
	"mercator-hq/beaconlog/pkg/scanner"
	"mercator-hq/beaconlog/pkg/upload"
	"mercator-hq/beaconlog/pkg/writer"
)

// fakeScanner delivers events only when the test calls emit.
type fakeScanner struct {
	mu       sync.Mutex
	handler  scanner.Handler
	starts   int
	stops    int
	startErr []error // consumed one per Start
}

func (s *fakeScanner) Start(_ context.Context, _ scanner.FilterConfig, h scanner.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	if len(s.startErr) > 0 {
		err := s.startErr[0]
		s.startErr = s.startErr[1:]
		if err != nil {
			return err
		}
	}
	s.handler = h
	return nil
}

func (s *fakeScanner) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.handler = nil
	return nil
}

func (s *fakeScanner) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

// emit delivers ev to the handler of the last successful Start, or
// directly to late if the scanner is stopped.
func (s *fakeScanner) emit(ev scanner.Event, late scanner.Handler) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		h = late
	}
	h(ev)
}

type sinkRecord struct {
	path string
	meta upload.Metadata
}

type fixture struct {
	t       *testing.T
	ctrl    *Controller
	scanner *fakeScanner
	dir     string

	mu    sync.Mutex
	sunk  []sinkRecord
	clock time.Time
}

func newFixture(t *testing.T, continuous bool, cycleThreshold int, floor int, startErrs ...error) *fixture {
	t.Helper()
	f := &fixture{t: t, scanner: &fakeScanner{startErr: startErrs}, dir: t.TempDir()}

	sink := upload.SinkFunc(func(_ context.Context, path string, meta upload.Metadata) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sunk = append(f.sunk, sinkRecord{path: path, meta: meta})
		return nil
	})

	ctrl, err := New(Config{
		Cadence:    time.Hour,
		Continuous: continuous,
		Filter:     scanner.FilterConfig{Mode: scanner.ModeLowLatency},
		Writer: writer.Config{
			Directory:    f.dir,
			Policy:       rotation.NewPolicy(2048, cycleThreshold, rotation.SizeActionFlush),
			Location:     time.UTC,
			SequenceBase: 1,
		},
	}, Deps{
		Scanner:    f.scanner,
		Processor:  record.NewProcessor(nil, floor),
		Dispatcher: upload.NewDispatcher(sink, upload.DefaultConfig()),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.ctrl = ctrl
	f.clock = day0
	ctrl.now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.clock
	}
	t.Cleanup(func() { ctrl.Shutdown(context.Background()) })
	return f
}

var day0 = time.Date(2024, time.March, 9, 10, 0, 0, 0, time.UTC)

// emit delivers an event and advances the controller clock to at.
func (f *fixture) emit(rssi int, at time.Time) {
	f.mu.Lock()
	if at.After(f.clock) {
		f.clock = at
	}
	f.mu.Unlock()

	f.scanner.emit(scanner.Event{
		Address:     "AA:BB:CC:DD:EE:FF",
		RSSI:        rssi,
		Payload:     []byte{0x02, 0x01, 0x06},
		ArrivalTime: at,
	}, f.ctrl.HandleEvent)
}

func (f *fixture) sunkFiles() []sinkRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sinkRecord(nil), f.sunk...)
}

func (f *fixture) readAll() []string {
	f.t.Helper()
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		f.t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(f.dir, name))
		if err != nil {
			f.t.Fatal(err)
		}
		for _, l := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
			if l != "" {
				lines = append(lines, l)
			}
		}
	}
	return lines
}

func TestController_StartEntersScanningImmediately(t *testing.T) {
	f := newFixture(t, false, 60, record.PermissiveFloor)

	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := f.ctrl.State(); got != StateScanning {
		t.Errorf("State() = %s, want scanning", got)
	}
	if err := f.ctrl.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestController_AlternatingTicks(t *testing.T) {
	f := newFixture(t, false, 60, record.StrictFloor)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	// -99 is below the strict floor of -98
	f.emit(-95, day0)
	f.emit(-99, day0.Add(time.Second))
	f.emit(-97, day0.Add(2*time.Second))

	f.ctrl.Tick(ctx)
	if got := f.ctrl.State(); got != StateIdle {
		t.Fatalf("State() after tick = %s, want idle", got)
	}

	// The cycle end flushes without a size or day trigger
	lines := f.readAll()
	if len(lines) != 2 {
		t.Fatalf("file has %d lines after cycle end, want 2: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], ",-95,") || !strings.Contains(lines[1], ",-97,") {
		t.Errorf("lines = %v, want -95 then -97", lines)
	}

	f.ctrl.Tick(ctx)
	if got := f.ctrl.State(); got != StateScanning {
		t.Errorf("State() after second tick = %s, want scanning", got)
	}
	starts, stops := f.scanner.counts()
	if starts != 2 || stops != 1 {
		t.Errorf("scanner starts/stops = %d/%d, want 2/1", starts, stops)
	}
}

func TestController_ContinuousTicks(t *testing.T) {
	f := newFixture(t, true, 60, record.PermissiveFloor)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	for i := 0; i < 3; i++ {
		f.ctrl.Tick(ctx)
		if got := f.ctrl.State(); got != StateScanning {
			t.Fatalf("State() after tick %d = %s, want scanning", i+1, got)
		}
	}

	starts, stops := f.scanner.counts()
	if starts != 4 || stops != 3 {
		t.Errorf("scanner starts/stops = %d/%d, want 4/3", starts, stops)
	}
	if got := f.ctrl.Status().Cycle; got != 4 {
		t.Errorf("Cycle = %d, want 4", got)
	}
}

func TestController_ElapsedCycleRotation(t *testing.T) {
	f := newFixture(t, true, 2, record.PermissiveFloor)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	for i := 0; i < 3; i++ {
		f.emit(-60, day0.Add(time.Duration(i)*time.Minute))
		f.ctrl.Tick(ctx)
	}

	// Two completed cycles, then the third cycle's stop rotates
	st := f.ctrl.Writer().Status()
	if st.Open == nil {
		t.Fatal("no open file after elapsed-cycle rotation")
	}
	if st.Open.Sequence != 2 {
		t.Errorf("open Sequence = %d, want 2", st.Open.Sequence)
	}
	if st.LastFinalized == nil || st.LastFinalized.Sequence != 1 {
		t.Fatalf("LastFinalized = %+v, want sequence 1", st.LastFinalized)
	}

	f.ctrl.Shutdown(ctx)

	sunk := f.sunkFiles()
	if len(sunk) != 1 {
		t.Fatalf("dispatched %d files, want 1 (the empty sequence 2 file is discarded)", len(sunk))
	}
	if sunk[0].meta.Sequence != 1 || sunk[0].meta.RunID != f.ctrl.RunID() {
		t.Errorf("dispatched metadata = %+v", sunk[0].meta)
	}
	want := rotation.FileName(f.ctrl.RunID(), rotation.DayOf(day0, time.UTC), 1)
	if filepath.Base(sunk[0].path) != want {
		t.Errorf("dispatched %s, want %s", filepath.Base(sunk[0].path), want)
	}
}

func TestController_DayChangeRotates(t *testing.T) {
	f := newFixture(t, true, 60, record.PermissiveFloor)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	f.emit(-60, day0)
	f.emit(-61, day0.Add(14*time.Hour)) // next day in UTC
	f.ctrl.Tick(ctx)
	f.ctrl.Shutdown(ctx)

	sunk := f.sunkFiles()
	if len(sunk) != 2 {
		t.Fatalf("dispatched %d files, want 2", len(sunk))
	}
	days := map[rotation.Day]bool{}
	for _, s := range sunk {
		days[s.meta.Day] = true
		if s.meta.Sequence != 1 {
			t.Errorf("%s Sequence = %d, want 1 (reset on new day)", s.path, s.meta.Sequence)
		}
	}
	if len(days) != 2 {
		t.Errorf("dispatched days = %v, want two distinct days", days)
	}
}

func TestController_PreconditionFailureRetriesOnNextTick(t *testing.T) {
	perr := scanner.NewPreconditionError(scanner.ReasonRadioDisabled, nil)
	f := newFixture(t, false, 60, record.PermissiveFloor, perr)

	var requested []string
	f.ctrl.precond = scanner.PreconditionFunc(func(_ context.Context, err *scanner.PreconditionError) {
		requested = append(requested, err.Reason)
	})

	ctx := context.Background()
	if err := f.ctrl.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v, want nil (failure is retried)", err)
	}
	if got := f.ctrl.State(); got != StateIdle {
		t.Errorf("State() = %s, want idle", got)
	}
	if len(requested) != 1 || requested[0] != scanner.ReasonRadioDisabled {
		t.Errorf("precondition requests = %v", requested)
	}
	if err := f.ctrl.ScannerHealth(); !errors.Is(err, scanner.ErrPrecondition) {
		t.Errorf("ScannerHealth() = %v, want precondition error", err)
	}
	if got := f.ctrl.Status().LastStartError; got == "" {
		t.Error("Status().LastStartError is empty")
	}

	f.ctrl.Tick(ctx)
	if got := f.ctrl.State(); got != StateScanning {
		t.Errorf("State() after retry = %s, want scanning", got)
	}
	if err := f.ctrl.ScannerHealth(); err != nil {
		t.Errorf("ScannerHealth() after recovery = %v", err)
	}
}

func TestController_LateEventsDropped(t *testing.T) {
	f := newFixture(t, false, 60, record.PermissiveFloor)
	ctx := context.Background()
	f.ctrl.Start(ctx)
	f.ctrl.Tick(ctx) // idle

	f.ctrl.HandleEvent(scanner.Event{Address: "x", RSSI: -50, Payload: []byte{1}, ArrivalTime: day0})

	if st := f.ctrl.Writer().Status(); st.BufferedLines != 0 || st.Open != nil {
		t.Errorf("late event reached the writer: %+v", st)
	}
}

func TestController_ShutdownIdempotent(t *testing.T) {
	f := newFixture(t, true, 60, record.PermissiveFloor)
	ctx := context.Background()
	f.ctrl.Start(ctx)
	f.emit(-60, day0)
	f.emit(-61, day0.Add(time.Second))

	if err := f.ctrl.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := f.ctrl.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}

	if got := f.ctrl.State(); got != StateStopped {
		t.Errorf("State() = %s, want stopped", got)
	}
	_, stops := f.scanner.counts()
	if stops != 1 {
		t.Errorf("scanner stopped %d times, want 1", stops)
	}

	sunk := f.sunkFiles()
	if len(sunk) != 1 {
		t.Fatalf("dispatched %d files, want exactly 1", len(sunk))
	}
	if lines := f.readAll(); len(lines) != 2 {
		t.Errorf("finalized file has %d lines, want 2", len(lines))
	}

	if err := f.ctrl.Start(ctx); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after Shutdown error = %v, want ErrStopped", err)
	}
	f.ctrl.Tick(ctx)
	if starts, _ := f.scanner.counts(); starts != 1 {
		t.Errorf("Tick after Shutdown started the scanner (starts = %d)", starts)
	}
}

func TestController_ShutdownBeforeStart(t *testing.T) {
	f := newFixture(t, false, 60, record.PermissiveFloor)
	if err := f.ctrl.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if starts, stops := f.scanner.counts(); starts != 0 || stops != 0 {
		t.Errorf("scanner touched: starts=%d stops=%d", starts, stops)
	}
}

func TestController_ShutdownBoundedByContext(t *testing.T) {
	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })
	sink := upload.SinkFunc(func(context.Context, string, upload.Metadata) error {
		<-unblock
		return nil
	})

	sc := &fakeScanner{}
	ctrl, err := New(Config{
		Cadence:    time.Hour,
		Continuous: true,
		Filter:     scanner.FilterConfig{Mode: scanner.ModeLowLatency},
		Writer: writer.Config{
			Directory:    t.TempDir(),
			Policy:       rotation.NewPolicy(2048, 60, rotation.SizeActionFlush),
			Location:     time.UTC,
			SequenceBase: 1,
		},
	}, Deps{
		Scanner:    sc,
		Processor:  record.NewProcessor(nil, record.PermissiveFloor),
		Dispatcher: upload.NewDispatcher(sink, upload.Config{QueueSize: 4, DrainOnClose: true, CloseTimeout: time.Minute}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctrl.now = func() time.Time { return day0 }

	ctx := context.Background()
	if err := ctrl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	sc.emit(scanner.Event{
		Address:     "AA:BB:CC:DD:EE:FF",
		RSSI:        -60,
		Payload:     []byte{0x02, 0x01, 0x06},
		ArrivalTime: day0,
	}, ctrl.HandleEvent)

	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Shutdown(shutdownCtx) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Shutdown() error = nil, want dispatcher drain error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown() blocked on a stuck sink")
	}

	if st := ctrl.Status(); st.Upload.Abandoned != 1 || st.State != StateStopped {
		t.Errorf("Status() = %+v, want stopped with 1 abandoned", st)
	}
}

func TestController_StatusSnapshot(t *testing.T) {
	f := newFixture(t, false, 60, record.StrictFloor)
	ctx := context.Background()
	f.ctrl.Start(ctx)
	f.emit(-60, day0)

	st := f.ctrl.Status()
	if st.RunID == "" || st.RunID != f.ctrl.RunID() {
		t.Errorf("RunID = %q", st.RunID)
	}
	if st.State != StateScanning {
		t.Errorf("State = %s", st.State)
	}
	if st.AcceptanceRSSI != record.StrictFloor {
		t.Errorf("AcceptanceRSSI = %d, want %d", st.AcceptanceRSSI, record.StrictFloor)
	}
	if st.Writer.BufferedLines != 1 {
		t.Errorf("Writer.BufferedLines = %d, want 1", st.Writer.BufferedLines)
	}
	if st.StartedAt.IsZero() {
		t.Error("StartedAt is zero")
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Error("New() without deps should fail")
	}
}

func TestNewRunID_Unique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Errorf("NewRunID() returned %q twice", a)
	}
	if !strings.Contains(rotation.FileName(a, rotation.Day{Year: 2024, Month: 1, Day: 1}, 1), a) {
		t.Error("run id not embedded in file name")
	}
	if _, err := rotation.ParseFileName(rotation.FileName(a, rotation.Day{Year: 2024, Month: 1, Day: 1}, 1)); err != nil {
		t.Errorf("file name with run id does not parse: %v", err)
	}
}
