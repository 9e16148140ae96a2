package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kanpai-app/kanpai/internal/cache"
	"github.com/kanpai-app/kanpai/internal/inference"
	"github.com/kanpai-app/kanpai/internal/metrics"
	"github.com/kanpai-app/kanpai/internal/progress"
	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// timedOutReason is the failure message recorded for jobs that exhausted
// their safety window.
const timedOutReason = "job timed out"

// Summary reports what one reconcile pass did. Processed minus Completed
// minus Failed is the number of jobs still in flight.
type Summary struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

type outcome int

const (
	outcomeInFlight outcome = iota
	outcomeCompleted
	outcomeFailed
)

// Reconciler drives active jobs toward a terminal status by polling the
// inference service. One pass handles at most batchSize jobs, oldest first;
// each job is isolated so a single failure never aborts the pass.
type Reconciler struct {
	store     store.Store
	client    inference.Client
	effects   *SideEffects
	cache     cache.Cache
	events    eventLog
	metrics   metrics.Sink
	batchSize int
	clock     func() time.Time
}

// NewReconciler creates a Reconciler. client may be nil when the inference
// credential is absent; active jobs then fail fast instead of polling.
func NewReconciler(st store.Store, client inference.Client, effects *SideEffects, ca cache.Cache, prog *progress.Emitter, sink metrics.Sink, batchSize int) *Reconciler {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Reconciler{
		store:     st,
		client:    client,
		effects:   effects,
		cache:     ca,
		events:    eventLog{store: st, progress: prog},
		metrics:   sink,
		batchSize: batchSize,
		clock:     time.Now,
	}
}

// ReconcileOnce runs a single pass: load the oldest active jobs up to the
// batch cap and advance each one. The returned error covers only the batch
// load; per-job failures are absorbed into the summary.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (Summary, error) {
	r.metrics.ReconcileStarted()
	start := r.clock()

	active, err := r.store.ListActiveGiftJobs(ctx, r.batchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("listing active jobs: %w", err)
	}

	var summary Summary
	for _, job := range active {
		summary.Processed++
		switch r.reconcileJob(ctx, job) {
		case outcomeCompleted:
			summary.Completed++
		case outcomeFailed:
			summary.Failed++
		}
	}

	r.metrics.ReconcileCompleted(r.clock().Sub(start),
		summary.Processed, summary.Completed, summary.Failed)

	if summary.Processed > 0 {
		slog.Info("reconcile pass finished",
			"processed", summary.Processed,
			"completed", summary.Completed,
			"failed", summary.Failed)
	}
	return summary, nil
}

// reconcileJob advances one job. A panic in any step fails that job only.
func (r *Reconciler) reconcileJob(ctx context.Context, job *models.GiftJob) (result outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while reconciling job", "job_id", job.ID, "panic", rec)
			r.failJob(ctx, job, fmt.Sprintf("internal error: %v", rec))
			result = outcomeFailed
		}
	}()

	// Timeout is checked before any remote call so a stuck or unreachable
	// inference service cannot keep a job active past its safety window.
	if job.TimedOut(r.clock().UTC()) {
		r.failJob(ctx, job, timedOutReason)
		return outcomeFailed
	}

	if r.client == nil {
		r.failJob(ctx, job, ErrNotConfigured.Error())
		return outcomeFailed
	}

	response, err := r.client.Retrieve(ctx, job.ResponseID)
	if err != nil {
		r.failJob(ctx, job, fmt.Sprintf("retrieving inference response: %v", err))
		return outcomeFailed
	}

	switch response.Status {
	case inference.StatusQueued, inference.StatusInProgress:
		r.markRunning(ctx, job)
		return outcomeInFlight
	case inference.StatusCompleted:
		return r.completeJob(ctx, job, response)
	default:
		// failed, cancelled, and any unrecognized terminal status.
		r.failJob(ctx, job, response.FailureReason())
		return outcomeFailed
	}
}

// markRunning applies the QUEUED to RUNNING transition once. Re-observing a
// job already RUNNING is a no-op, as is losing the write to a concurrent pass.
func (r *Reconciler) markRunning(ctx context.Context, job *models.GiftJob) {
	if job.Status == models.JobStatusRunning {
		return
	}

	err := r.store.UpdateGiftJobStatus(ctx, job.ID, models.JobStatusRunning,
		store.WithStartedAt(), store.WithExpectedStatus(models.JobStatusQueued))
	if errors.Is(err, store.ErrStatusConflict) {
		return
	}
	if err != nil {
		slog.Warn("failed to mark job running", "job_id", job.ID, "error", err)
		return
	}

	r.events.record(ctx, job, models.EventTypeStatus,
		"inference started",
		"The inference service started processing the recommendation.",
		map[string]any{"response_id": job.ResponseID})
	r.mirrorStatus(ctx, job, models.JobStatusRunning)
	r.metrics.JobTransition(models.JobStatusRunning)
}

// completeJob extracts and validates the output, then races the COMPLETED
// write. Only the pass whose write lands emits the final event and runs the
// side effects, so each completion dispatches exactly once.
func (r *Reconciler) completeJob(ctx context.Context, job *models.GiftJob, response *inference.Response) outcome {
	text, err := response.FirstOutputText()
	if err != nil {
		r.failJob(ctx, job, err.Error())
		return outcomeFailed
	}

	payload, err := ParsePayload(text)
	if err != nil {
		r.failJob(ctx, job, fmt.Sprintf("invalid recommendation payload: %v", err))
		return outcomeFailed
	}

	err = r.store.UpdateGiftJobStatus(ctx, job.ID, models.JobStatusCompleted)
	if errors.Is(err, store.ErrStatusConflict) {
		// Another pass already finished this job; its side effects ran there.
		return outcomeInFlight
	}
	if err != nil {
		r.failJob(ctx, job, fmt.Sprintf("persisting completion: %v", err))
		return outcomeFailed
	}

	model := response.Model
	r.events.record(ctx, job, models.EventTypeFinal,
		"recommendation ready",
		"The sake recommendation is ready.",
		map[string]any{"model": model, "sake_name": payload.Sake.Name})
	r.mirrorStatus(ctx, job, models.JobStatusCompleted)
	r.metrics.JobTransition(models.JobStatusCompleted)

	if err := r.effects.OnCompleted(ctx, job, payload, model); err != nil {
		// The job stays COMPLETED; the recommendation surface recovers on read.
		slog.Error("completion side effects failed", "job_id", job.ID, "error", err)
	}
	r.events.clearRun(job)

	slog.Info("gift job completed", "job_id", job.ID, "gift_id", job.GiftID)
	return outcomeCompleted
}

// failJob races the FAILED write and, when it wins, records the error event
// and closes out the parent gift. Losing the race means the job reached a
// terminal status elsewhere and nothing more is owed.
func (r *Reconciler) failJob(ctx context.Context, job *models.GiftJob, reason string) {
	err := r.store.UpdateGiftJobStatus(ctx, job.ID, models.JobStatusFailed,
		store.WithLastError(reason))
	if errors.Is(err, store.ErrStatusConflict) {
		return
	}
	if err != nil {
		slog.Error("failed to mark job failed", "job_id", job.ID, "reason", reason, "error", err)
		return
	}

	r.events.record(ctx, job, models.EventTypeError,
		"job failed", reason, nil)
	r.mirrorStatus(ctx, job, models.JobStatusFailed)
	r.metrics.JobTransition(models.JobStatusFailed)

	r.effects.OnFailed(ctx, job, reason)
	r.events.clearRun(job)

	slog.Warn("gift job failed", "job_id", job.ID, "gift_id", job.GiftID, "reason", reason)
}

func (r *Reconciler) mirrorStatus(ctx context.Context, job *models.GiftJob, status string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetJobStatus(ctx, job.ID, status, statusMirrorTTL); err != nil {
		slog.Warn("failed to mirror job status", "job_id", job.ID, "error", err)
	}
}
