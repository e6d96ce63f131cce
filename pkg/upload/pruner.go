package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/beaconlog/pkg/rotation"
	"mercator-hq/beaconlog/pkg/telemetry/metrics"
)

// RetentionConfig contains configuration for the retention pruner.
type RetentionConfig struct {
	// Days is how long uploaded files stay on local storage.
	// 0 keeps them forever (no pruning).
	Days int

	// Schedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string

	// Location decides the calendar day of the cutoff. Default: time.Local
	Location *time.Location
}

// Pruner removes local copies of uploaded files once they are older than
// the retention period. Only files the ledger records as uploaded are
// touched; failed or abandoned hand-offs stay on disk. Start runs Prune on
// the configured cron schedule, evaluated in the retention location so the
// schedule and the cutoff agree on day boundaries.
type Pruner struct {
	ledger  *Ledger
	config  RetentionConfig
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	cron *cron.Cron // nil while not scheduled
}

// NewPruner creates a new retention pruner. c may be nil.
func NewPruner(ledger *Ledger, config RetentionConfig, c *metrics.Collector) *Pruner {
	if config.Location == nil {
		config.Location = time.Local
	}

	p := &Pruner{
		ledger:  ledger,
		config:  config,
		metrics: c,
		logger:  slog.Default().With("component", "upload.retention"),
		now:     time.Now,
	}
	return p
}

// Cutoff returns the first day that is kept.
func (p *Pruner) Cutoff() rotation.Day {
	return rotation.DayOf(p.now().AddDate(0, 0, -p.config.Days), p.config.Location)
}

// Prune deletes uploaded files whose day is before the cutoff and marks
// them pruned in the ledger. It returns the number of files pruned.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.Days <= 0 {
		p.logger.Debug("retention disabled, nothing pruned")
		return 0, nil
	}

	cutoff := p.Cutoff()
	entries, err := p.ledger.PrunableBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query prunable files: %w", err)
	}

	pruned := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}

		if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to remove uploaded file", "path", e.Path, "error", err)
			continue
		}
		if err := p.ledger.MarkPruned(ctx, e.Path); err != nil {
			return pruned, fmt.Errorf("failed to mark %s pruned: %w", e.Path, err)
		}
		pruned++
	}

	p.metrics.RecordPruned(pruned)

	if pruned == 0 {
		p.logger.Debug("no files pruned", "cutoff", cutoff.String())
	} else {
		p.logger.Info("retention pruning completed",
			"pruned", pruned,
			"cutoff", cutoff.String(),
			"retention_days", p.config.Days,
		)
	}

	return pruned, nil
}

// Start schedules Prune on the retention cron expression. It does nothing
// when no schedule is set, retention is disabled, or pruning is already
// scheduled. Pruning is unscheduled when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return nil
	}
	if p.config.Schedule == "" || p.config.Days <= 0 {
		p.logger.Info("retention not configured, pruning not scheduled")
		return nil
	}

	c := cron.New(cron.WithLocation(p.config.Location))
	if _, err := c.AddFunc(p.config.Schedule, func() { p.scheduledPrune(ctx) }); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.config.Schedule, err)
	}
	c.Start()
	p.cron = c

	p.logger.Info("retention pruning scheduled",
		"schedule", p.config.Schedule,
		"retention_days", p.config.Days,
		"location", p.config.Location.String(),
	)

	go func() {
		<-ctx.Done()
		p.unschedule(c)
	}()
	return nil
}

func (p *Pruner) scheduledPrune(ctx context.Context) {
	if _, err := p.Prune(ctx); err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
	}
}

// Stop unschedules pruning and waits for a running Prune to return.
func (p *Pruner) Stop() {
	p.mu.Lock()
	c := p.cron
	p.mu.Unlock()
	if c != nil {
		p.unschedule(c)
	}
}

// unschedule stops c if it is still the active schedule.
func (p *Pruner) unschedule(c *cron.Cron) {
	p.mu.Lock()
	if p.cron != c {
		p.mu.Unlock()
		return
	}
	p.cron = nil
	p.mu.Unlock()

	<-c.Stop().Done()
	p.logger.Info("retention pruning unscheduled")
}

// Scheduled reports whether pruning is scheduled.
func (p *Pruner) Scheduled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cron != nil
}

// NextPruning returns the time of the next scheduled pruning, or nil when
// pruning is not scheduled.
func (p *Pruner) NextPruning() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron == nil {
		return nil
	}
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
