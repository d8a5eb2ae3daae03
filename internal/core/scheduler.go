package core

// scheduler.go drives load cycles.
//
// A cycle runs immediately on start, then the scheduler waits until the
// schedule's next activation after the cycle finished and runs again. There is
// no jitter, no catch-up for missed activations and no persisted last-run
// state: a restart begins a fresh cycle at once. Cycles never overlap because
// the wait only starts after a cycle returns.

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/invload/internal/logging"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule waits one day between cycles.
const DefaultSchedule = "@every 24h"

// CycleRunner runs one load cycle. Satisfied by *Runner.
type CycleRunner interface {
	RunOnce(ctx context.Context) (CycleResult, error)
}

// ParseSchedule parses a standard cron expression or an @every/@daily
// descriptor.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Scheduler repeats cycles on a schedule.
type Scheduler struct {
	runner   CycleRunner
	schedule cron.Schedule

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock and timer, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

// NewScheduler creates a scheduler running runner on schedule.
func NewScheduler(runner CycleRunner, schedule cron.Schedule, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		schedule: schedule,
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until ctx is cancelled or a cycle fails. A fatal cycle error is
// returned unchanged so the process can exit with it; cancellation returns
// nil.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Info("scheduler started")

	for {
		if _, err := s.runner.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info("scheduler stopped")
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			logger.Info("scheduler stopped")
			return nil
		}

		next := s.schedule.Next(s.now())
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		logger.Info("waiting for next cycle", "next_run", next.Format(time.RFC3339), "wait", wait.String())

		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return nil
		case <-s.after(wait):
		}
	}
}
