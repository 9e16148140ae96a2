package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// mockStore satisfies store.Store with injectable fixtures. Methods not
// backed by a fixture return ErrNotFound.
type mockStore struct {
	gift    *models.Gift
	job     *models.GiftJob
	events  []*models.GiftJobEvent
	rec     *models.GiftRecommendation
	account *models.LineAccount

	pingErr error
	giftErr error
	jobErr  error

	notifications []*models.Notification
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) CreateGiftJob(_ context.Context, _ *models.GiftJob) error { return nil }

func (m *mockStore) GetGiftJob(_ context.Context, id uuid.UUID) (*models.GiftJob, error) {
	if m.jobErr != nil {
		return nil, m.jobErr
	}
	if m.job == nil || m.job.ID != id {
		return nil, store.ErrNotFound
	}
	return m.job, nil
}

func (m *mockStore) ListActiveGiftJobs(_ context.Context, _ int) ([]*models.GiftJob, error) {
	return nil, nil
}

func (m *mockStore) UpdateGiftJobStatus(_ context.Context, _ uuid.UUID, _ string, _ ...store.JobUpdateOption) error {
	return nil
}

func (m *mockStore) AppendJobEvent(_ context.Context, _ *models.GiftJobEvent) error { return nil }

func (m *mockStore) ListJobEvents(_ context.Context, jobID uuid.UUID, _ time.Time) ([]*models.GiftJobEvent, error) {
	var out []*models.GiftJobEvent
	for _, e := range m.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) GetGift(_ context.Context, id uuid.UUID) (*models.Gift, error) {
	if m.giftErr != nil {
		return nil, m.giftErr
	}
	if m.gift == nil || m.gift.ID != id {
		return nil, store.ErrNotFound
	}
	return m.gift, nil
}

func (m *mockStore) UpdateGiftStatus(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (m *mockStore) UpsertRecommendation(_ context.Context, _ *models.GiftRecommendation) error {
	return nil
}

func (m *mockStore) GetRecommendationByGiftID(_ context.Context, giftID uuid.UUID) (*models.GiftRecommendation, error) {
	if m.rec == nil || m.rec.GiftID != giftID {
		return nil, store.ErrNotFound
	}
	return m.rec, nil
}

func (m *mockStore) CreateNotification(_ context.Context, n *models.Notification) error {
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockStore) GetLineAccountByUserID(_ context.Context, userID uuid.UUID) (*models.LineAccount, error) {
	if m.account == nil || m.account.UserID != userID {
		return nil, store.ErrNotFound
	}
	return m.account, nil
}

var _ store.Store = (*mockStore)(nil)

// --- fixtures ---

func openGift() *models.Gift {
	return &models.Gift{
		ID:           uuid.New(),
		SenderUserID: uuid.New(),
		BudgetMin:    3000,
		BudgetMax:    8000,
		Status:       models.GiftStatusOpen,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func activeJob(giftID uuid.UUID) *models.GiftJob {
	runID := "gift:test1234"
	now := time.Now().UTC()
	return &models.GiftJob{
		ID:         uuid.New(),
		GiftID:     giftID,
		ResponseID: "resp_abc",
		RunID:      &runID,
		Status:     models.JobStatusRunning,
		TimeoutAt:  now.Add(15 * time.Minute),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// --- request helpers ---

func urlParamCtx(key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(context.Background(), chi.RouteCtxKey, rctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Error.Code
}
