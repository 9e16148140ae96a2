package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kanpai-app/kanpai/internal/progress"
	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// eventLog appends job events to the store and mirrors them to the live
// progress emitter. Both legs are observability only; failures are logged
// and never interrupt the caller.
type eventLog struct {
	store    store.Store
	progress *progress.Emitter
}

func (l *eventLog) record(ctx context.Context, job *models.GiftJob, eventType, label, message string, payload map[string]any) {
	// Both legs carry the same timestamp. The event stream dedupes its
	// store replay against the emitter replay by timestamp, so the two
	// copies of one event must be indistinguishable.
	now := time.Now().UTC()
	event := &models.GiftJobEvent{
		ID:        uuid.New(),
		JobID:     job.ID,
		EventType: eventType,
		Label:     &label,
		Message:   &message,
		Payload:   payload,
		CreatedAt: now,
	}
	if err := l.store.AppendJobEvent(ctx, event); err != nil {
		slog.Warn("failed to append job event",
			"job_id", job.ID, "event_type", eventType, "error", err)
	}

	if l.progress == nil || job.RunID == nil {
		return
	}
	l.progress.Publish(*job.RunID, progress.Event{
		Type:      eventType,
		Label:     label,
		Message:   message,
		Payload:   payload,
		Timestamp: now,
	})
}

// clearRun drops the run's buffered progress once the job is terminal.
// Later readers replay the persisted events instead.
func (l *eventLog) clearRun(job *models.GiftJob) {
	if l.progress == nil || job.RunID == nil {
		return
	}
	l.progress.Clear(*job.RunID)
}
