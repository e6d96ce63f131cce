package rotation

import (
	"fmt"
	"time"
)

// Day is a calendar day in the writer's time zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in loc. A nil loc means time.Local.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Before reports whether d is an earlier day than other.
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// FileState is the lifecycle state of a LogFile.
type FileState int

const (
	// StateOpen means the file is the writer's active file.
	StateOpen FileState = iota
	// StateFinalized means the file is closed and eligible for dispatch.
	StateFinalized
	// StateDispatched means the upload dispatcher accepted ownership.
	StateDispatched
)

// String returns the state name.
func (s FileState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFinalized:
		return "finalized"
	case StateDispatched:
		return "dispatched"
	default:
		return fmt.Sprintf("FileState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s FileState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LogFile is the metadata of one log file.
type LogFile struct {
	Path                string    `json:"path"`
	RunID               string    `json:"run_id"`
	Day                 Day       `json:"day"`
	Sequence            int       `json:"sequence"`
	BytesWritten        int64     `json:"bytes_written"`
	CyclesSinceRotation int       `json:"cycles_since_rotation"`
	State               FileState `json:"state"`
	OpenedAt            time.Time `json:"opened_at"`
	FinalizedAt         time.Time `json:"finalized_at,omitzero"`
}

// CycleWindow is the scheduling state consulted by the elapsed-cycle trigger.
// It is reset only when a file is rotated.
type CycleWindow struct {
	CycleCount      int
	LastRotationDay Day
}

// Advance records one completed scan cycle.
func (w *CycleWindow) Advance() {
	w.CycleCount++
}

// Reset starts a new window at day.
func (w *CycleWindow) Reset(day Day) {
	w.CycleCount = 0
	w.LastRotationDay = day
}

// Decision is the outcome of Policy.Decide.
type Decision int

const (
	// Continue keeps appending to the buffer.
	Continue Decision = iota
	// RotateForNewDay closes the open file (if any) and opens one for the new day.
	RotateForNewDay
	// RotateForSize flushes the buffer; see SizeAction.
	RotateForSize
	// RotateForElapsedCycles closes the open file regardless of size or day.
	RotateForElapsedCycles
)

// String returns the decision name, which doubles as a metric label.
func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case RotateForNewDay:
		return "new_day"
	case RotateForSize:
		return "size"
	case RotateForElapsedCycles:
		return "elapsed_cycles"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}
