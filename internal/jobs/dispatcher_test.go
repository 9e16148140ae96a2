package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanpai-app/kanpai/pkg/models"
)

func parsedValidPayload(t *testing.T) *RecommendationPayload {
	t.Helper()
	payload, err := ParsePayload(validPayloadJSON)
	require.NoError(t, err)
	return payload
}

func TestOnCompleted_OrderingAndRecords(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	seedLineAccount(st, gift.SenderUserID)
	job := seedJob(st, gift.ID, models.JobStatusCompleted, time.Now().UTC())

	pusher := &mockPusher{}
	d := NewSideEffects(st, pusher, nil, "https://app.example.com")

	err := d.OnCompleted(context.Background(), job, parsedValidPayload(t), "gpt-5-mini")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"upsert_recommendation",
		"update_gift:" + models.GiftStatusRecommendReady,
		"create_notification:" + models.NotificationTypeRecommendReady,
	}, st.ops, "recommendation must land before the gift flips, notification last")

	assert.Equal(t, 1, pusher.pushCount())
}

func TestOnCompleted_NoLinkedAccountSkipsPush(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	job := seedJob(st, gift.ID, models.JobStatusCompleted, time.Now().UTC())

	pusher := &mockPusher{}
	d := NewSideEffects(st, pusher, nil, "https://app.example.com")

	err := d.OnCompleted(context.Background(), job, parsedValidPayload(t), "gpt-5-mini")
	require.NoError(t, err)
	assert.Equal(t, 0, pusher.pushCount())
	assert.Len(t, st.notifications, 1, "in-app notification still recorded")
}

func TestOnCompleted_PushFailureDoesNotError(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	seedLineAccount(st, gift.SenderUserID)
	job := seedJob(st, gift.ID, models.JobStatusCompleted, time.Now().UTC())

	pusher := &mockPusher{err: errors.New("line is down")}
	d := NewSideEffects(st, pusher, nil, "https://app.example.com")

	err := d.OnCompleted(context.Background(), job, parsedValidPayload(t), "gpt-5-mini")
	require.NoError(t, err, "push failure never rolls back the completion")

	updatedGift, _ := st.GetGift(context.Background(), gift.ID)
	assert.Equal(t, models.GiftStatusRecommendReady, updatedGift.Status)
}

func TestOnCompleted_MissingGiftErrors(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	job := seedJob(st, gift.ID, models.JobStatusCompleted, time.Now().UTC())
	delete(st.gifts, gift.ID)

	d := NewSideEffects(st, &mockPusher{}, nil, "https://app.example.com")
	err := d.OnCompleted(context.Background(), job, parsedValidPayload(t), "gpt-5-mini")
	require.Error(t, err)
}

func TestOnCompleted_UpsertReplacesPriorRecommendation(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	job := seedJob(st, gift.ID, models.JobStatusCompleted, time.Now().UTC())

	d := NewSideEffects(st, &mockPusher{}, nil, "https://app.example.com")
	require.NoError(t, d.OnCompleted(context.Background(), job, parsedValidPayload(t), "gpt-5-mini"))

	second, err := ParsePayload(`{
	  "sake": {"name": "Kubota Manju", "image_url": "https://example.com/kubota.jpg"},
	  "summary": "A second pick.",
	  "reasoning": "Refined and smooth.",
	  "shops": [{"retailer": "Niigata Sake", "url": "https://shop.example.com/kubota"}]
	}`)
	require.NoError(t, err)
	require.NoError(t, d.OnCompleted(context.Background(), job, second, "gpt-5-mini"))

	rec, err := st.GetRecommendationByGiftID(context.Background(), gift.ID)
	require.NoError(t, err)
	assert.Contains(t, string(rec.Payload), "Kubota Manju")
	assert.NotContains(t, string(rec.Payload), "Dassai 39")
}

func TestOnFailed_ClosesGiftAndRecordsNotification(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	job := seedJob(st, gift.ID, models.JobStatusFailed, time.Now().UTC())

	d := NewSideEffects(st, &mockPusher{}, nil, "https://app.example.com")
	d.OnFailed(context.Background(), job, "job timed out")

	updatedGift, _ := st.GetGift(context.Background(), gift.ID)
	assert.Equal(t, models.GiftStatusClosed, updatedGift.Status)

	require.Len(t, st.notifications, 1)
	assert.Equal(t, models.NotificationTypeRecommendFailed, st.notifications[0].Type)
	assert.Equal(t, "job timed out", st.notifications[0].Payload["reason"])
}

func TestOnFailed_MissingGiftIsTolerated(t *testing.T) {
	st := newMemStore()
	gift := seedGift(st)
	job := seedJob(st, gift.ID, models.JobStatusFailed, time.Now().UTC())
	delete(st.gifts, gift.ID)

	d := NewSideEffects(st, &mockPusher{}, nil, "https://app.example.com")
	d.OnFailed(context.Background(), job, "whatever") // must not panic
	assert.Empty(t, st.notifications)
}
