// Package scheduler runs the job reconciler on a cron cadence. It is the
// in-process replacement for an external cron trigger; the HTTP trigger
// endpoint remains available for out-of-band runs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kanpai-app/kanpai/internal/jobs"
)

// runTimeout bounds one scheduled reconcile pass.
const runTimeout = 5 * time.Minute

// Scheduler wraps a cron runner around the reconciler.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *jobs.Reconciler
	schedule   string
}

// New creates a Scheduler. schedule accepts standard cron expressions and
// the @every / @hourly descriptors.
func New(reconciler *jobs.Reconciler, schedule string) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		schedule:   schedule,
	}
}

// Start registers the reconcile entry and begins the cron loop. The loop
// runs until Stop; overlapping passes are harmless because job transitions
// are conditional writes, but each pass still gets its own deadline.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		summary, err := s.reconciler.ReconcileOnce(ctx)
		if err != nil {
			slog.Error("scheduled reconcile pass failed", "error", err)
			return
		}
		if summary.Processed > 0 {
			slog.Debug("scheduled reconcile pass",
				"processed", summary.Processed,
				"completed", summary.Completed,
				"failed", summary.Failed)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	slog.Info("job scheduler started", "schedule", s.schedule)
	return nil
}

// Stop halts the cron loop and waits for any in-flight pass to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("job scheduler stopped")
}
