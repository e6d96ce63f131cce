package controller

import "fmt"

// State is the scan-cycle state.
type State int32

const (
	// StateIdle means the radio is not delivering events.
	StateIdle State = iota
	// StateScanning means events are routed into the writer.
	StateScanning
	// StateStopped is terminal.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
