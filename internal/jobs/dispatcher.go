package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kanpai-app/kanpai/internal/metrics"
	"github.com/kanpai-app/kanpai/internal/notify"
	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// SideEffects fans out the consequences of a job's terminal transition.
// The reconciler invokes it exactly once per transition into COMPLETED and
// once per failure path that closes the parent gift.
type SideEffects struct {
	store     store.Store
	pusher    notify.Pusher
	metrics   metrics.Sink
	appOrigin string
}

// NewSideEffects creates the dispatcher. pusher may be notify.NopPusher{}
// when no messaging channel is configured.
func NewSideEffects(st store.Store, pusher notify.Pusher, sink metrics.Sink, appOrigin string) *SideEffects {
	if pusher == nil {
		pusher = notify.NopPusher{}
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &SideEffects{
		store:     st,
		pusher:    pusher,
		metrics:   sink,
		appOrigin: appOrigin,
	}
}

// OnCompleted persists the validated recommendation, flips the gift to
// RECOMMEND_READY, records an in-app notification, and attempts one push
// delivery. Push failure is logged and never rolls back the earlier steps
// or the job's COMPLETED status: recommendation correctness is the job's
// contract, not notification delivery.
func (d *SideEffects) OnCompleted(ctx context.Context, job *models.GiftJob, payload *RecommendationPayload, model string) error {
	gift, err := d.store.GetGift(ctx, job.GiftID)
	if err != nil {
		return fmt.Errorf("loading gift %s: %w", job.GiftID, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding recommendation: %w", err)
	}

	now := time.Now().UTC()
	rec := &models.GiftRecommendation{
		ID:        uuid.New(),
		GiftID:    gift.ID,
		Payload:   raw,
		Model:     model,
		CreatedAt: now,
	}
	if err := d.store.UpsertRecommendation(ctx, rec); err != nil {
		return fmt.Errorf("persisting recommendation: %w", err)
	}

	if err := d.store.UpdateGiftStatus(ctx, gift.ID, models.GiftStatusRecommendReady); err != nil {
		return fmt.Errorf("updating gift status: %w", err)
	}

	notification := &models.Notification{
		ID:     uuid.New(),
		UserID: gift.SenderUserID,
		Type:   models.NotificationTypeRecommendReady,
		Payload: map[string]any{
			"gift_id":        gift.ID.String(),
			"recipient_name": gift.RecipientFirstName,
			"occasion":       gift.Occasion,
		},
		CreatedAt: now,
	}
	if err := d.store.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	d.deliverPush(ctx, gift)
	return nil
}

// OnFailed closes the parent gift so the user-facing surface stops waiting,
// and records a failure notification for the sender.
func (d *SideEffects) OnFailed(ctx context.Context, job *models.GiftJob, reason string) {
	if err := d.store.UpdateGiftStatus(ctx, job.GiftID, models.GiftStatusClosed); err != nil {
		slog.Error("failed to close gift after job failure",
			"gift_id", job.GiftID, "job_id", job.ID, "error", err)
		return
	}

	gift, err := d.store.GetGift(ctx, job.GiftID)
	if err != nil {
		slog.Warn("failed to load gift for failure notification",
			"gift_id", job.GiftID, "error", err)
		return
	}

	notification := &models.Notification{
		ID:     uuid.New(),
		UserID: gift.SenderUserID,
		Type:   models.NotificationTypeRecommendFailed,
		Payload: map[string]any{
			"gift_id": gift.ID.String(),
			"reason":  reason,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.CreateNotification(ctx, notification); err != nil {
		slog.Warn("failed to create failure notification",
			"gift_id", gift.ID, "error", err)
	}
}

// deliverPush attempts one best-effort LINE delivery. Users without a
// linked messaging account are skipped silently.
func (d *SideEffects) deliverPush(ctx context.Context, gift *models.Gift) {
	account, err := d.store.GetLineAccountByUserID(ctx, gift.SenderUserID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("failed to look up line account",
			"user_id", gift.SenderUserID, "error", err)
		return
	}

	messages := notify.RecommendationReadyMessages(
		d.appOrigin, gift.ID.String(), gift.RecipientFirstName, gift.Occasion)

	if err := d.pusher.Push(ctx, account.LineUserID, messages); err != nil {
		d.metrics.PushDelivery(false)
		slog.Warn("push delivery failed", "gift_id", gift.ID, "error", err)
		return
	}
	d.metrics.PushDelivery(true)
}
