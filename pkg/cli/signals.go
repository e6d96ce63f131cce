package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler creates a context that is canceled on SIGINT or SIGTERM.
// A second signal exits the process immediately.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
		<-sigChan
		os.Exit(1)
	}()

	return ctx
}

// WaitForShutdown returns a channel receiving SIGINT and SIGTERM.
func WaitForShutdown() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	return sigChan
}

// ReloadRequests returns a channel that receives a value on every SIGHUP.
// The channel stops receiving once ctx is done.
func ReloadRequests(ctx context.Context) <-chan struct{} {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
