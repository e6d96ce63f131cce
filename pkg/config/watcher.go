package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a change is reloaded.
const DefaultDebounceInterval = 100 * time.Millisecond

// ErrWatcherRunning is returned when Watch is called twice.
var ErrWatcherRunning = errors.New("config watcher already running")

// ReloadFunc receives a freshly loaded and validated configuration.
type ReloadFunc func(cfg *Config) error

// Watcher watches a configuration file and reloads it on change.
// The parent directory is watched so that editors replacing the file by
// rename are still observed. Rapid events are debounced.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fw,
		logger:   logger.With("component", "config.watcher"),
		debounce: NewDebouncer(interval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until the context is cancelled or Stop is called. Each
// debounced change reloads the file with environment overrides and passes the
// result to onReload. Invalid files are logged and the previous configuration
// stays in effect.
func (w *Watcher) Watch(ctx context.Context, onReload ReloadFunc) error {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.logger.Info("config watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.stopCh:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("config file event", "op", event.Op.String())

			w.debounce.Trigger(func() {
				cfg, err := LoadConfigWithEnvOverrides(w.path)
				if err != nil {
					w.logger.Error("config reload rejected", "error", err)
					return
				}
				if err := onReload(cfg); err != nil {
					w.logger.Error("config reload failed", "error", err)
					return
				}
				w.logger.Info("config reloaded", "path", w.path)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for Watch to return.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	running := w.running
	w.mu.Unlock()

	close(w.stopCh)
	if running {
		<-w.doneCh
	}
	w.debounce.Stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

// Debouncer collects rapid events and runs only the last callback after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
