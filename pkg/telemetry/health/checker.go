package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Check statuses.
const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
)

// Overall statuses. Liveness reports StatusOK.
const (
	StatusReady       = "ready"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// Impact is how a failing component affects the pipeline.
type Impact int

const (
	// Degrading failures leave observations flowing with weaker guarantees,
	// such as lines held in memory while the log directory fails.
	Degrading Impact = iota

	// Blocking failures stop observations from being collected.
	Blocking
)

// String returns the impact name.
func (i Impact) String() string {
	if i == Blocking {
		return "blocking"
	}
	return "degrading"
}

// MarshalText implements encoding.TextMarshaler.
func (i Impact) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// CheckFunc returns nil while the component is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  string `json:"status"`
	Impact  Impact `json:"impact"`
	Message string `json:"message,omitempty"`

	// FailingSince is the first failed check of the current failure streak.
	FailingSince time.Time `json:"failing_since,omitzero"`

	Duration time.Duration `json:"duration_ms,omitempty"`
}

// HealthStatus is the response of the liveness and readiness endpoints.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ErrCheckTimeout is reported when a check does not return in time.
var ErrCheckTimeout = errors.New("health check timeout")

type component struct {
	check        CheckFunc
	impact       Impact
	failingSince time.Time
}

// Checker evaluates the health of the pipeline components. Checks run in
// name order and remember when each component started failing.
type Checker struct {
	mu         sync.Mutex
	components map[string]*component

	checkTimeout time.Duration
	started      time.Time
	now          func() time.Time
}

// New creates a checker. A zero timeout defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}
	return &Checker{
		components:   make(map[string]*component),
		checkTimeout: checkTimeout,
		started:      time.Now(),
		now:          time.Now,
	}
}

// Register adds the check of a named component, replacing any previous
// check with that name.
func (c *Checker) Register(name string, impact Impact, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = &component{check: check, impact: impact}
}

// CheckLiveness reports that the process is running.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	now := c.now()
	return HealthStatus{
		Status:    StatusOK,
		Uptime:    now.Sub(c.started).Truncate(time.Second).String(),
		Timestamp: now,
	}
}

// CheckReadiness runs every component check. The pipeline is unavailable
// while a blocking component fails and degraded while only degrading
// components fail.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	sort.Strings(names)

	status := StatusReady
	results := make(map[string]CheckResult, len(names))
	for _, name := range names {
		comp := c.components[name]
		result := c.run(ctx, comp)
		results[name] = result

		if result.Status == StatusOK {
			continue
		}
		if comp.impact == Blocking {
			status = StatusUnavailable
		} else if status == StatusReady {
			status = StatusDegraded
		}
	}

	return HealthStatus{
		Status:    status,
		Checks:    results,
		Timestamp: c.now(),
	}
}

// run executes one check with the checker timeout and updates the failure
// streak of comp. c.mu is held.
func (c *Checker) run(ctx context.Context, comp *component) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	errc := make(chan error, 1)
	go func() { errc <- comp.check(checkCtx) }()

	var err error
	select {
	case err = <-errc:
	case <-checkCtx.Done():
		err = ErrCheckTimeout
	}

	result := CheckResult{Status: StatusOK, Impact: comp.impact, Duration: time.Since(start)}
	if err == nil {
		comp.failingSince = time.Time{}
		return result
	}

	if comp.failingSince.IsZero() {
		comp.failingSince = c.now()
	}
	result.Status = StatusUnhealthy
	result.Message = err.Error()
	result.FailingSince = comp.failingSince
	return result
}
