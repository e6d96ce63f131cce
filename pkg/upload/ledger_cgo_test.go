//go:build cgo

package upload

import (
	"context"
	"testing"
	"time"

	"mercator-hq/beaconlog/pkg/rotation"
)

func TestLedger_Sqlite3Driver(t *testing.T) {
	l := openDriverLedger(t, "sqlite3")
	if l.driver != "sqlite3" {
		t.Fatalf("driver = %q, want sqlite3", l.driver)
	}
	checkLedgerLifecycle(t, l)

	ctx := context.Background()
	old := rotation.Day{Year: 2024, Month: time.January, Day: 2}
	if err := l.RecordQueued(ctx, "/logs/old.csv", meta(old, 1)); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordResult(ctx, "/logs/old.csv", time.Now(), nil); err != nil {
		t.Fatal(err)
	}

	prunable, err := l.PrunableBefore(ctx, rotation.Day{Year: 2024, Month: time.February, Day: 1})
	if err != nil {
		t.Fatalf("PrunableBefore() error = %v", err)
	}
	if len(prunable) != 1 || prunable[0].Path != "/logs/old.csv" {
		t.Errorf("PrunableBefore() = %+v, want only old.csv", prunable)
	}
	if err := l.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
