package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const fixture = `# address,rssi,payload
AA:BB:CC:DD:EE:01,-60,020106
AA:BB:CC:DD:EE:02,-99,
AA:BB:CC:DD:EE:03,-75,0303aafe
`

func TestParseReplay(t *testing.T) {
	events, err := ParseReplay(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("ParseReplay() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	if events[0].Address != "AA:BB:CC:DD:EE:01" || events[0].RSSI != -60 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if string(events[0].Payload) != "\x02\x01\x06" {
		t.Errorf("unexpected payload: %x", events[0].Payload)
	}
	if events[1].Payload != nil {
		t.Errorf("expected absent payload, got %x", events[1].Payload)
	}
}

func TestParseReplay_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "bad rssi", input: "AA,strong,00\n"},
		{name: "bad payload", input: "AA,-50,zz\n"},
		{name: "missing column", input: "AA,-50\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseReplay(strings.NewReader(tt.input)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestReplayScanner_DeliversInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.csv")
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s := NewReplayScanner(ReplayConfig{Path: path, Interval: time.Millisecond})

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	err := s.Start(context.Background(), FilterConfig{Mode: ModeLowLatency}, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.Address)
		if len(got) == 3 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:02", "AA:BB:CC:DD:EE:03"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReplayScanner_NoEventsAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.csv")
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s := NewReplayScanner(ReplayConfig{Path: path, Interval: time.Millisecond, Loop: true})

	var mu sync.Mutex
	stopped := false
	late := 0

	err := s.Start(context.Background(), FilterConfig{}, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			late++
		}
	})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	mu.Lock()
	stopped = true
	mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if late != 0 {
		t.Errorf("expected no events after Stop, got %d", late)
	}
}

func TestReplayScanner_Preconditions(t *testing.T) {
	s := NewReplayScanner(ReplayConfig{Path: filepath.Join(t.TempDir(), "missing.csv")})

	err := s.Start(context.Background(), FilterConfig{}, func(Event) {})
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if pe.Reason != ReasonAdapterNotFound {
		t.Errorf("expected reason %s, got %s", ReasonAdapterNotFound, pe.Reason)
	}
	if !errors.Is(err, ErrPrecondition) {
		t.Error("expected errors.Is(err, ErrPrecondition)")
	}

	s.SetRadioEnabled(false)
	err = s.Start(context.Background(), FilterConfig{}, func(Event) {})
	if !errors.As(err, &pe) || pe.Reason != ReasonRadioDisabled {
		t.Errorf("expected radio_disabled precondition, got %v", err)
	}
}

func TestReplayScanner_Filters(t *testing.T) {
	events, err := ParseReplay(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("ParseReplay() failed: %v", err)
	}

	filtered := applyFilters(events, []string{"aa:bb:cc:dd:ee:03"})
	if len(filtered) != 1 || filtered[0].Address != "AA:BB:CC:DD:EE:03" {
		t.Errorf("unexpected filtered events: %+v", filtered)
	}
	if len(applyFilters(events, nil)) != 3 {
		t.Error("expected no filters to keep every event")
	}
}

func TestParseScanMode(t *testing.T) {
	if m, err := ParseScanMode(""); err != nil || m != ModeLowLatency {
		t.Errorf("expected default low_latency, got %q (%v)", m, err)
	}
	if m, err := ParseScanMode("balanced"); err != nil || m != ModeBalanced {
		t.Errorf("expected balanced, got %q (%v)", m, err)
	}
	if _, err := ParseScanMode("turbo"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
