package scanner

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultReplayInterval is the delay between replayed advertisements.
const DefaultReplayInterval = 100 * time.Millisecond

// ReplayConfig configures a ReplayScanner.
type ReplayConfig struct {
	// Path is the fixture file. Each row is "address,rssi,payload_hex";
	// an empty payload column means the record is absent. Lines starting
	// with '#' are ignored.
	Path string

	// Interval is the delay between events.
	// Default: 100ms
	Interval time.Duration

	// Loop restarts from the first row after the last one.
	Loop bool

	// Now returns the arrival time stamped on each event. Defaults to time.Now.
	Now func() time.Time
}

// ReplayScanner replays advertisements from a fixture file.
type ReplayScanner struct {
	config  ReplayConfig
	logger  *slog.Logger
	mu      sync.Mutex
	radioOn bool
	stop    chan struct{}
	done    chan struct{}
}

// NewReplayScanner creates a ReplayScanner. The fixture is read on every Start
// so edits take effect on the next scan cycle.
func NewReplayScanner(config ReplayConfig) *ReplayScanner {
	if config.Interval <= 0 {
		config.Interval = DefaultReplayInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &ReplayScanner{
		config:  config,
		logger:  slog.Default().With("component", "scanner.replay"),
		radioOn: true,
	}
}

// SetRadioEnabled simulates the user toggling the radio. While disabled,
// Start fails with a *PreconditionError.
func (s *ReplayScanner) SetRadioEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radioOn = enabled
}

// Start implements Scanner.
func (s *ReplayScanner) Start(ctx context.Context, filter FilterConfig, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.radioOn {
		return NewPreconditionError(ReasonRadioDisabled, nil)
	}
	if s.stop != nil {
		return errors.New("replay scanner already started")
	}

	events, err := LoadReplayFile(s.config.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewPreconditionError(ReasonAdapterNotFound, err)
		}
		return err
	}
	events = applyFilters(events, filter.Filters)

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(events, h, s.stop, s.done)

	s.logger.Debug("replay started",
		"path", s.config.Path,
		"events", len(events),
		"mode", filter.Mode,
	)
	return nil
}

// Stop implements Scanner. It waits for the replay goroutine to exit so no
// event is delivered after it returns.
func (s *ReplayScanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ReplayScanner) run(events []Event, h Handler, stop, done chan struct{}) {
	defer close(done)

	if len(events) == 0 {
		<-stop
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for i := 0; ; {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ev := events[i]
		ev.ArrivalTime = s.config.Now()
		h(ev)

		i++
		if i == len(events) {
			if !s.config.Loop {
				<-stop
				return
			}
			i = 0
		}
	}
}

// LoadReplayFile parses a replay fixture.
func LoadReplayFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file %q: %w", path, err)
	}
	defer f.Close()

	events, err := ParseReplay(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse replay file %q: %w", path, err)
	}
	return events, nil
}

// ParseReplay reads replay rows from r.
func ParseReplay(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var events []Event
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)

		rssi, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rssi %q", line, row[1])
		}

		ev := Event{
			Address: strings.TrimSpace(row[0]),
			RSSI:    rssi,
		}
		if p := strings.TrimSpace(row[2]); p != "" {
			ev.Payload, err = hex.DecodeString(p)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid payload: %w", line, err)
			}
		}
		events = append(events, ev)
	}
}

func applyFilters(events []Event, filters []string) []Event {
	if len(filters) == 0 {
		return events
	}
	allowed := make(map[string]struct{}, len(filters))
	for _, f := range filters {
		allowed[strings.ToUpper(f)] = struct{}{}
	}

	out := events[:0:0]
	for _, ev := range events {
		if _, ok := allowed[strings.ToUpper(ev.Address)]; ok {
			out = append(out, ev)
		}
	}
	return out
}
