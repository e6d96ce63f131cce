package rotation

import "fmt"

// Reference thresholds.
const (
	DefaultSizeThreshold  = 2048
	DefaultCycleThreshold = 60
)

// SizeAction selects what the size trigger does.
type SizeAction string

const (
	// SizeActionFlush writes the buffer into the open file without closing it.
	SizeActionFlush SizeAction = "flush"
	// SizeActionRotate flushes and then closes the file.
	SizeActionRotate SizeAction = "rotate"
)

// ParseSizeAction converts a configuration string. Empty selects SizeActionFlush.
func ParseSizeAction(s string) (SizeAction, error) {
	switch SizeAction(s) {
	case "":
		return SizeActionFlush, nil
	case SizeActionFlush, SizeActionRotate:
		return SizeAction(s), nil
	default:
		return "", fmt.Errorf("unknown size trigger action %q", s)
	}
}

// Policy holds the rotation thresholds. The zero value is not useful; use
// NewPolicy or set every field.
type Policy struct {
	// SizeThreshold is the pending buffer length in bytes that triggers a flush.
	SizeThreshold int

	// CycleThreshold is the number of completed scan cycles after which the
	// open file is closed.
	CycleThreshold int

	// SizeAction is what RotateForSize does.
	SizeAction SizeAction
}

// NewPolicy creates a policy. Non-positive thresholds take the reference values.
func NewPolicy(sizeThreshold, cycleThreshold int, action SizeAction) Policy {
	if sizeThreshold <= 0 {
		sizeThreshold = DefaultSizeThreshold
	}
	if cycleThreshold <= 0 {
		cycleThreshold = DefaultCycleThreshold
	}
	if action == "" {
		action = SizeActionFlush
	}
	return Policy{
		SizeThreshold:  sizeThreshold,
		CycleThreshold: cycleThreshold,
		SizeAction:     action,
	}
}

// Decide returns the rotation decision for the open file (nil when none is
// open), the calendar day of the data about to be written, and the pending
// buffer length including that data.
func (p Policy) Decide(file *LogFile, now Day, bufferLen int) Decision {
	switch {
	case file == nil:
		return RotateForNewDay
	case file.Day != now:
		return RotateForNewDay
	case bufferLen >= p.SizeThreshold:
		return RotateForSize
	case file.CyclesSinceRotation >= p.CycleThreshold:
		return RotateForElapsedCycles
	default:
		return Continue
	}
}

// Closes reports whether executing d closes the open file.
func (p Policy) Closes(d Decision) bool {
	switch d {
	case RotateForNewDay, RotateForElapsedCycles:
		return true
	case RotateForSize:
		return p.SizeAction == SizeActionRotate
	default:
		return false
	}
}
