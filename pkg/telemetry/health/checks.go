package health

import (
	"context"
	"fmt"
)

// FailureCounter reports consecutive failed flushes.
type FailureCounter interface {
	ConsecutiveFailures() int
}

// WriterCheck is unhealthy while the writer's most recent flushes failed.
// This is the degraded-mode signal for a failing local disk.
func WriterCheck(w FailureCounter) CheckFunc {
	return func(ctx context.Context) error {
		if n := w.ConsecutiveFailures(); n > 0 {
			return fmt.Errorf("%d consecutive flush failures, observations buffered in memory", n)
		}
		return nil
	}
}

// ScannerCheck is unhealthy after a failed scan start until the next
// successful one. lastStartErr returns the most recent start error.
func ScannerCheck(lastStartErr func() error) CheckFunc {
	return func(ctx context.Context) error {
		if err := lastStartErr(); err != nil {
			return fmt.Errorf("scanning not active: %w", err)
		}
		return nil
	}
}

// PingCheck adapts a context-aware ping, such as sql.DB.PingContext.
func PingCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		return ping(ctx)
	}
}
