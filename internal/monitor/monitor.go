// Package monitor runs a periodic evaluation loop for live data. Each tick
// invokes a step function; transient failures are logged and the loop keeps
// its cadence, while unhandled failures put the loop into a long backoff
// before polling resumes.
package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"trade-sim-lab/internal/observability"
)

// ErrTransient marks a step failure as expected and recoverable. Steps wrap
// such errors with fmt.Errorf("...: %w", ErrTransient) so the loop continues
// at its normal interval.
var ErrTransient = errors.New("transient failure")

// StepFunc is one poll iteration. It should honor ctx cancellation.
type StepFunc func(ctx context.Context) error

// Options configures the monitor loop.
type Options struct {
	Interval time.Duration // poll cadence, default 15s
	Backoff  time.Duration // pause after an unhandled failure, default 5m
	Logger   *log.Logger
}

// Monitor drives a step function on a fixed interval.
type Monitor struct {
	interval time.Duration
	backoff  time.Duration
	logger   *log.Logger
}

// New creates a monitor with the given options.
func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Monitor{
		interval: opts.Interval,
		backoff:  opts.Backoff,
		logger:   opts.Logger,
	}
}

// Run polls step until the context is cancelled. It always returns the
// context's error.
func (m *Monitor) Run(ctx context.Context, step StepFunc) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		err := step(ctx)
		switch {
		case err == nil:
			observability.RecordMonitorPoll("ok")
			observability.DefaultMetrics.LastSuccessfulPoll.SetToCurrentTime()
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrTransient):
			observability.RecordMonitorPoll("transient")
			m.logger.Printf("[monitor] transient failure, continuing: %v", err)
		default:
			observability.RecordMonitorPoll("failed")
			observability.DefaultMetrics.MonitorBackoffs.Inc()
			m.logger.Printf("[monitor] unhandled failure, backing off %v: %v", m.backoff, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.backoff):
			}
			// Realign the cadence after the pause.
			ticker.Reset(m.interval)
		}
	}
}
