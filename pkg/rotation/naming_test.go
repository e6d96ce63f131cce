package rotation

import (
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	name := FileName("3f2a9c1e-0b7d-4c55-9a51-2a6f0c1d8e77", Day{Year: 2026, Month: time.January, Day: 7}, 3)
	want := "BLE_Log_3f2a9c1e-0b7d-4c55-9a51-2a6f0c1d8e77_2026_1_7_3.csv"
	if name != want {
		t.Errorf("FileName() = %q, want %q", name, want)
	}
}

func TestParseFileName_RoundTrip(t *testing.T) {
	day := Day{Year: 2026, Month: time.December, Day: 31}
	parts, err := ParseFileName(FileName("run1", day, 12))
	if err != nil {
		t.Fatalf("ParseFileName() failed: %v", err)
	}
	if parts.RunID != "run1" || parts.Day != day || parts.Sequence != 12 {
		t.Errorf("unexpected parts: %+v", parts)
	}
}

func TestParseFileName_Invalid(t *testing.T) {
	for _, name := range []string{
		"BLE_Log_2026_1_7.csv",
		"BLE_Log_run_2026_13_7_1.csv",
		"BLE_Log_run_2026_1_7_1.txt",
		"notes.csv",
	} {
		if _, err := ParseFileName(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}
