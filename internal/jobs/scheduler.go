// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/robfig/cron/v3"
)

const DefaultReconcileSchedule = "@every 1h"

type Reconciler interface {
	Reconcile(ctx context.Context) ([]ledger.Discrepancy, error)
}

// Report is the outcome of the latest reconcile run.
type Report struct {
	StartedAt     time.Time
	Duration      time.Duration
	Discrepancies []ledger.Discrepancy
	Err           error
}

type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	schedule   string
	log        *slog.Logger

	mu   sync.Mutex
	last Report
	runs int
}

func NewScheduler(r Reconciler, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}

	logger = logger.With("component", "jobs")

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}), cron.Recover(cronLogger{logger})),
	)

	return &Scheduler{cron: c, reconciler: r, schedule: schedule, log: logger}
}

// Start registers the jobs and starts the cron loop. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunReconcile(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", "reconcile_schedule", s.schedule)

	return nil
}

// Stop stops scheduling and waits for a running job, at most until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// RunReconcile runs one reconcile pass and records its report.
func (s *Scheduler) RunReconcile(ctx context.Context) Report {
	start := time.Now()

	found, err := s.reconciler.Reconcile(ctx)

	rep := Report{StartedAt: start.UTC(), Duration: time.Since(start), Discrepancies: found, Err: err}

	switch {
	case err != nil:
		s.log.Error("reconcile failed", "error", err, "duration", rep.Duration)
	case len(found) > 0:
		s.log.Warn("reconcile found discrepancies", "count", len(found), "duration", rep.Duration)
	default:
		s.log.Info("reconcile clean", "duration", rep.Duration)
	}

	s.mu.Lock()
	s.last = rep
	s.runs++
	s.mu.Unlock()

	return rep
}

// Last returns the most recent report and how many runs happened so far.
func (s *Scheduler) Last() (Report, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last, s.runs
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
