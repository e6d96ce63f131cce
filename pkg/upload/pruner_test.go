package upload

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"mercator-hq/beaconlog/pkg/rotation"
)

func TestPruner_RemovesOnlyOldUploadedFiles(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()
	dir := t.TempDir()

	oldUploaded := finalizedFile(t, dir, "old-uploaded.csv", "a\n")
	oldUploaded.Day = rotation.Day{Year: 2024, Month: time.March, Day: 1}
	oldFailed := finalizedFile(t, dir, "old-failed.csv", "b\n")
	oldFailed.Day = rotation.Day{Year: 2024, Month: time.March, Day: 1}
	recent := finalizedFile(t, dir, "recent.csv", "c\n")
	recent.Day = rotation.Day{Year: 2024, Month: time.March, Day: 9}

	for _, f := range []*rotation.LogFile{oldUploaded, oldFailed, recent} {
		if err := ledger.RecordQueued(ctx, f.Path, MetadataOf(*f)); err != nil {
			t.Fatal(err)
		}
	}
	ledger.RecordResult(ctx, oldUploaded.Path, time.Now(), nil)
	ledger.RecordResult(ctx, oldFailed.Path, time.Now(), errors.New("offline"))
	ledger.RecordResult(ctx, recent.Path, time.Now(), nil)

	p := NewPruner(ledger, RetentionConfig{Days: 7, Location: time.UTC}, nil)
	p.now = func() time.Time { return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC) }

	if got := p.Cutoff(); got != (rotation.Day{Year: 2024, Month: time.March, Day: 3}) {
		t.Errorf("Cutoff() = %s, want 2024-03-03", got)
	}

	pruned, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("Prune() = %d, want 1", pruned)
	}

	if _, err := os.Stat(oldUploaded.Path); !os.IsNotExist(err) {
		t.Error("old uploaded file still on disk")
	}
	for _, f := range []*rotation.LogFile{oldFailed, recent} {
		if _, err := os.Stat(f.Path); err != nil {
			t.Errorf("%s removed: %v", f.Path, err)
		}
	}

	e, _ := ledger.Get(ctx, oldUploaded.Path)
	if e.Status != StatusPruned {
		t.Errorf("Status = %q, want pruned", e.Status)
	}
}

func TestPruner_MissingFileStillMarked(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()
	m := meta(rotation.Day{Year: 2023, Month: time.January, Day: 1}, 1)

	ledger.RecordQueued(ctx, "/nonexistent/moved.csv", m)
	ledger.RecordResult(ctx, "/nonexistent/moved.csv", time.Now(), nil)

	p := NewPruner(ledger, RetentionConfig{Days: 1}, nil)
	pruned, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("Prune() = %d, want 1", pruned)
	}
}

func TestPruner_DisabledKeepsEverything(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()
	m := meta(rotation.Day{Year: 2000, Month: time.January, Day: 1}, 1)
	ledger.RecordQueued(ctx, "/logs/ancient.csv", m)
	ledger.RecordResult(ctx, "/logs/ancient.csv", time.Now(), nil)

	p := NewPruner(ledger, RetentionConfig{Days: 0}, nil)
	pruned, err := p.Prune(ctx)
	if err != nil || pruned != 0 {
		t.Errorf("Prune() = %d, %v; want 0, nil", pruned, err)
	}
}

func TestPruner_ScheduleLifecycle(t *testing.T) {
	ledger := openTestLedger(t)
	p := NewPruner(ledger, RetentionConfig{Days: 30, Schedule: "0 3 * * *"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.Scheduled() {
		t.Fatal("scheduler not running after Start()")
	}

	next := p.NextPruning()
	if next == nil {
		t.Fatal("NextPruning() = nil")
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextPruning() = %v, want 03:00", next)
	}

	p.Stop()
	if p.Scheduled() {
		t.Error("scheduler still running after Stop()")
	}
	p.Stop()

	// Rescheduling starts from a fresh schedule with a single entry
	if err := p.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("repeated Start() error = %v", err)
	}
	p.mu.Lock()
	entries := len(p.cron.Entries())
	p.mu.Unlock()
	if entries != 1 {
		t.Errorf("cron entries = %d after restart, want 1", entries)
	}
	p.Stop()
}

func TestPruner_ScheduleUsesRetentionLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	p := NewPruner(openTestLedger(t), RetentionConfig{Days: 7, Schedule: "0 3 * * *", Location: loc}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	next := p.NextPruning()
	if next == nil {
		t.Fatal("NextPruning() = nil")
	}
	if got := next.In(loc); got.Hour() != 3 || got.Minute() != 0 {
		t.Errorf("NextPruning() = %v, want 03:00 in %s", got, loc)
	}
}

func TestPruner_ScheduleNotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		config RetentionConfig
	}{
		{"empty schedule", RetentionConfig{Days: 30}},
		{"retention disabled", RetentionConfig{Days: 0, Schedule: "0 3 * * *"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPruner(openTestLedger(t), tt.config, nil)
			if err := p.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if p.Scheduled() {
				t.Error("scheduler running without a schedule")
			}
			if p.NextPruning() != nil {
				t.Error("NextPruning() should be nil")
			}
		})
	}
}

func TestPruner_InvalidSchedule(t *testing.T) {
	p := NewPruner(openTestLedger(t), RetentionConfig{Days: 1, Schedule: "not a cron"}, nil)
	if err := p.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule should fail")
	}
}

func TestPruner_UnscheduledOnContextCancel(t *testing.T) {
	p := NewPruner(openTestLedger(t), RetentionConfig{Days: 1, Schedule: "@every 1h"}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for p.Scheduled() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
