package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("writer.log_dir", "must not be empty")

	want := "config error in writer.log_dir: must not be empty"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("ledger locked")
	err := NewCommandError("uploads prune", cause)

	want := "command uploads prune failed: ledger locked"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match the wrapped cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("a", "b"), ExitConfig},
		{"wrapped config", fmt.Errorf("load: %w", NewConfigError("a", "b")), ExitConfig},
		{"command", NewCommandError("run", errors.New("x")), ExitFailure},
		{"plain", errors.New("x"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
