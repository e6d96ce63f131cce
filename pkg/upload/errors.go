package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("upload: dispatcher closed")

	// ErrNotFinalized is returned when a file that is not Finalized is
	// offered for dispatch.
	ErrNotFinalized = errors.New("upload: file is not finalized")

	// ErrAlreadyDispatched is returned when a file is offered twice.
	ErrAlreadyDispatched = errors.New("upload: file already dispatched")

	// ErrQueueFull is returned when the dispatch queue has no room. The
	// file stays Finalized on local storage.
	ErrQueueFull = errors.New("upload: dispatch queue full")
)

// LedgerError represents an error from the upload ledger.
type LedgerError struct {
	Driver    string // database/sql driver name
	Operation string // Operation that failed ("open", "insert", "query", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error [driver=%s, operation=%s]: %v", e.Driver, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// DispatchError represents a hand-off the sink did not accept.
type DispatchError struct {
	Path  string // Local path of the finalized file
	Cause error  // Error returned by the sink
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch of %s failed: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}
