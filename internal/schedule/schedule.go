// Package schedule runs a job once per day at a fixed local time.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/douwatch/douwatch/internal/logger"
)

// Job is the work executed on each tick, with the date the run is for.
type Job func(ctx context.Context, date time.Time)

// ParseTime parses an "HH:MM" schedule time.
func ParseTime(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("parse schedule time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule time %q out of range", s)
	}
	return hour, minute, nil
}

// NextRun returns the next occurrence of hour:minute strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Runner invokes a job daily at the configured time until the context is
// cancelled.
type Runner struct {
	hour   int
	minute int
	job    Job
	log    logger.Interface
}

// NewRunner creates a Runner for the given "HH:MM" time.
func NewRunner(at string, job Job, log logger.Interface) (*Runner, error) {
	h, m, err := ParseTime(at)
	if err != nil {
		return nil, err
	}
	return &Runner{hour: h, minute: m, job: job, log: log}, nil
}

// Run blocks, firing the job at each daily occurrence, and returns when ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		now := time.Now()
		next := NextRun(now, r.hour, r.minute)
		r.log.Info("next run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.job(ctx, next)
		}
	}
}
