package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler()

	select {
	case <-ctx.Done():
		t.Error("Context should not be cancelled initially")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestWaitForShutdown(t *testing.T) {
	sigChan := WaitForShutdown()
	if sigChan == nil {
		t.Fatal("WaitForShutdown() returned nil channel")
	}

	select {
	case <-sigChan:
		t.Error("Signal channel should be empty initially")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestReloadRequests(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping signal test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads := ReloadRequests(ctx)

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGHUP)

	select {
	case <-reloads:
	case <-time.After(time.Second):
		t.Skip("SIGHUP not received within timeout")
	}
}
