package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ScanMode selects the radio duty cycle requested from the subsystem.
type ScanMode string

const (
	// ModeLowPower scans with the lowest duty cycle.
	ModeLowPower ScanMode = "low_power"
	// ModeBalanced trades latency against power.
	ModeBalanced ScanMode = "balanced"
	// ModeLowLatency scans continuously.
	ModeLowLatency ScanMode = "low_latency"
)

// ParseScanMode converts a configuration string to a ScanMode.
// An empty string selects ModeLowLatency.
func ParseScanMode(s string) (ScanMode, error) {
	switch ScanMode(s) {
	case "":
		return ModeLowLatency, nil
	case ModeLowPower, ModeBalanced, ModeLowLatency:
		return ScanMode(s), nil
	default:
		return "", fmt.Errorf("unknown scan mode %q", s)
	}
}

// FilterConfig is passed to the subsystem when a scan starts.
type FilterConfig struct {
	// Mode is the requested duty cycle.
	Mode ScanMode

	// Filters restricts delivery to matching addresses. Empty means all.
	Filters []string
}

// Event is one advertisement callback.
type Event struct {
	// Address is the raw device identifier as reported by the radio.
	Address string

	// RSSI is the received signal strength in dBm.
	RSSI int

	// Payload is the raw advertisement record. Nil means the record was absent.
	Payload []byte

	// ArrivalTime is when the callback was delivered.
	ArrivalTime time.Time
}

// Handler receives events. Handlers are invoked in delivery order and must not
// retain the Event's slices after returning.
type Handler func(Event)

// Scanner controls the radio scanning subsystem.
type Scanner interface {
	// Start begins delivering events to h. A missing capability is reported
	// as a *PreconditionError.
	Start(ctx context.Context, filter FilterConfig, h Handler) error

	// Stop ends event delivery. When Stop returns no further events are
	// delivered to the handler passed to Start.
	Stop(ctx context.Context) error
}

// PreconditionHandler remediates precondition failures (requesting consent,
// asking the user to enable the radio). It must not block for long.
type PreconditionHandler interface {
	RequestPrecondition(ctx context.Context, err *PreconditionError)
}

// PreconditionFunc adapts a function to a PreconditionHandler.
type PreconditionFunc func(ctx context.Context, err *PreconditionError)

// RequestPrecondition implements PreconditionHandler.
func (f PreconditionFunc) RequestPrecondition(ctx context.Context, err *PreconditionError) {
	f(ctx, err)
}

// ErrPrecondition is the sentinel wrapped by every PreconditionError.
var ErrPrecondition = errors.New("scan precondition not met")

// Reasons reported by PreconditionError.
const (
	ReasonRadioDisabled   = "radio_disabled"
	ReasonConsentMissing  = "consent_missing"
	ReasonNotSupported    = "not_supported"
	ReasonAdapterNotFound = "adapter_not_found"
)

// PreconditionError reports that scanning cannot start until an external
// collaborator remediates Reason.
type PreconditionError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scan precondition not met [reason=%s]: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("scan precondition not met [reason=%s]", e.Reason)
}

// Unwrap returns ErrPrecondition so callers can use errors.Is.
func (e *PreconditionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrPrecondition, e.Cause}
	}
	return []error{ErrPrecondition}
}

// NewPreconditionError creates a PreconditionError.
func NewPreconditionError(reason string, cause error) *PreconditionError {
	return &PreconditionError{Reason: reason, Cause: cause}
}
