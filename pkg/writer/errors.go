package writer

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Accept and EndCycle after ForceFlushAndFinalize.
var ErrClosed = errors.New("writer: closed")

// WriteError reports a failed operation against the log directory. Lines
// that were pending when it occurred stay buffered and are retried on the
// next flush.
type WriteError struct {
	Path  string // File the operation targeted
	Op    string // "open", "write" or "close"
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("writer: %s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *WriteError) Unwrap() error {
	return e.Cause
}
