package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kanpai-app/kanpai/internal/cache"
	"github.com/kanpai-app/kanpai/internal/inference"
	"github.com/kanpai-app/kanpai/internal/metrics"
	"github.com/kanpai-app/kanpai/internal/progress"
	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// statusMirrorTTL bounds how long the redis job-status mirror outlives the
// job's last write.
const statusMirrorTTL = 30 * time.Minute

// SubmitterConfig holds the inference request parameters.
type SubmitterConfig struct {
	Model           string
	MaxOutputTokens int
	// Timeout is the safety window granted to every job at creation.
	Timeout time.Duration
}

// Submitter builds and submits background recommendation jobs. A job record
// only exists once the external service accepted the request; submission
// failures surface to the caller with nothing persisted.
type Submitter struct {
	store   store.Store
	cache   cache.Cache
	client  inference.Client
	events  eventLog
	metrics metrics.Sink
	cfg     SubmitterConfig
}

// NewSubmitter creates a Submitter. client may be nil when the inference
// credential is not configured; Submit then fails with ErrNotConfigured.
func NewSubmitter(st store.Store, ca cache.Cache, client inference.Client, prog *progress.Emitter, sink metrics.Sink, cfg SubmitterConfig) *Submitter {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Submitter{
		store:   st,
		cache:   ca,
		client:  client,
		events:  eventLog{store: st, progress: prog},
		metrics: sink,
		cfg:     cfg,
	}
}

// Submit creates one background inference request for the gift intake and
// persists the tracking job in QUEUED (or RUNNING when the service already
// reports in-progress), with timeout_at set to now plus the safety window.
func (s *Submitter) Submit(ctx context.Context, gctx GiftContext) (*models.GiftJob, error) {
	if gctx.Gift == nil || gctx.Gift.ID == uuid.Nil {
		return nil, ErrInvalidGiftContext
	}
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	jobID := uuid.New()
	runID := buildRunID(gctx.TraceGroupID)

	requestMetadata := map[string]string{
		"gift_id": gctx.Gift.ID.String(),
		"job_id":  jobID.String(),
	}
	if gctx.TraceGroupID != nil {
		requestMetadata["trace_group_id"] = *gctx.TraceGroupID
	}

	systemPrompt, userPrompt := buildPrompts(gctx)

	response, err := s.client.Submit(ctx, inference.Request{
		Model:           s.cfg.Model,
		Instructions:    systemPrompt,
		Input:           userPrompt,
		Metadata:        requestMetadata,
		MaxOutputTokens: s.cfg.MaxOutputTokens,
		Background:      true,
		SchemaName:      payloadSchemaName,
		Schema:          payloadSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("submitting inference request: %w", err)
	}

	now := time.Now().UTC()
	status := models.JobStatusQueued
	var startedAt *time.Time
	if response.Status == inference.StatusInProgress {
		status = models.JobStatusRunning
		startedAt = &now
	}

	jobMetadata := map[string]any{
		"gift_id": gctx.Gift.ID.String(),
		"job_id":  jobID.String(),
	}
	for k, v := range gctx.Metadata {
		jobMetadata[k] = v
	}
	if gctx.TraceGroupID != nil {
		jobMetadata["trace_group_id"] = *gctx.TraceGroupID
	}

	job := &models.GiftJob{
		ID:             jobID,
		GiftID:         gctx.Gift.ID,
		ResponseID:     response.ID,
		RunID:          &runID,
		Status:         status,
		Metadata:       jobMetadata,
		HandoffSummary: gctx.HandoffSummary,
		StartedAt:      startedAt,
		TimeoutAt:      now.Add(s.cfg.Timeout),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateGiftJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persisting gift job: %w", err)
	}

	s.events.record(ctx, job, models.EventTypeQueued,
		"background job registered",
		"Recommendation job submitted to the inference service.",
		map[string]any{"response_id": response.ID, "status": status})

	if s.cache != nil {
		if err := s.cache.SetJobStatus(ctx, job.ID, status, statusMirrorTTL); err != nil {
			slog.Warn("failed to mirror job status", "job_id", job.ID, "error", err)
		}
	}

	s.metrics.JobSubmitted()
	slog.Info("gift job submitted",
		"job_id", job.ID, "gift_id", job.GiftID, "response_id", job.ResponseID, "status", status)

	return job, nil
}

func buildRunID(traceGroupID *string) string {
	prefix := "gift"
	if traceGroupID != nil && *traceGroupID != "" {
		prefix = *traceGroupID
	}
	return fmt.Sprintf("%s:%s", prefix, uuid.New().String()[:8])
}
