package jobs

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kanpai-app/kanpai/internal/notify"
	"github.com/kanpai-app/kanpai/internal/store"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// memStore is an in-memory store.Store mirroring the conditional-update
// semantics of the Postgres implementation.
type memStore struct {
	mu            sync.Mutex
	jobs          map[uuid.UUID]*models.GiftJob
	gifts         map[uuid.UUID]*models.Gift
	events        []*models.GiftJobEvent
	recs          map[uuid.UUID]*models.GiftRecommendation
	notifications []*models.Notification
	lineAccounts  map[uuid.UUID]*models.LineAccount

	// ops records mutating calls in order, for asserting side-effect ordering.
	ops []string

	createJobErr error
	updateJobErr error
	listErr      error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:         make(map[uuid.UUID]*models.GiftJob),
		gifts:        make(map[uuid.UUID]*models.Gift),
		recs:         make(map[uuid.UUID]*models.GiftRecommendation),
		lineAccounts: make(map[uuid.UUID]*models.LineAccount),
	}
}

func (m *memStore) Ping(_ context.Context) error { return nil }

func (m *memStore) CreateGiftJob(_ context.Context, job *models.GiftJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createJobErr != nil {
		return m.createJobErr
	}
	copied := *job
	m.jobs[job.ID] = &copied
	m.ops = append(m.ops, "create_job")
	return nil
}

func (m *memStore) GetGiftJob(_ context.Context, id uuid.UUID) (*models.GiftJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memStore) ListActiveGiftJobs(_ context.Context, limit int) ([]*models.GiftJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var active []*models.GiftJob
	for _, job := range m.jobs {
		if !models.IsTerminalJobStatus(job.Status) {
			copied := *job
			active = append(active, &copied)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	if len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

func (m *memStore) UpdateGiftJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateJobErr != nil {
		return m.updateJobErr
	}
	params := store.ApplyJobUpdateOptions(opts)

	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	expected := params.ExpectedStatus
	if len(expected) == 0 {
		expected = models.ActiveJobStatuses
	}
	if !slices.Contains(expected, job.Status) {
		return store.ErrStatusConflict
	}

	now := time.Now().UTC()
	job.Status = status
	job.UpdatedAt = now
	if params.SetStartedAt {
		job.StartedAt = &now
	}
	if models.IsTerminalJobStatus(status) {
		job.CompletedAt = &now
	}
	if params.LastError != nil {
		job.LastError = params.LastError
	}
	m.ops = append(m.ops, "update_job:"+status)
	return nil
}

func (m *memStore) AppendJobEvent(_ context.Context, event *models.GiftJobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *event
	m.events = append(m.events, &copied)
	return nil
}

func (m *memStore) ListJobEvents(_ context.Context, jobID uuid.UUID, since time.Time) ([]*models.GiftJobEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GiftJobEvent
	for _, e := range m.events {
		if e.JobID == jobID && (since.IsZero() || e.CreatedAt.After(since)) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) GetGift(_ context.Context, id uuid.UUID) (*models.Gift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gift, ok := m.gifts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *gift
	return &copied, nil
}

func (m *memStore) UpdateGiftStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gift, ok := m.gifts[id]
	if !ok {
		return store.ErrNotFound
	}
	gift.Status = status
	gift.UpdatedAt = time.Now().UTC()
	m.ops = append(m.ops, "update_gift:"+status)
	return nil
}

func (m *memStore) UpsertRecommendation(_ context.Context, rec *models.GiftRecommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *rec
	m.recs[rec.GiftID] = &copied
	m.ops = append(m.ops, "upsert_recommendation")
	return nil
}

func (m *memStore) GetRecommendationByGiftID(_ context.Context, giftID uuid.UUID) (*models.GiftRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[giftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *memStore) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *n
	m.notifications = append(m.notifications, &copied)
	m.ops = append(m.ops, "create_notification:"+n.Type)
	return nil
}

func (m *memStore) GetLineAccountByUserID(_ context.Context, userID uuid.UUID) (*models.LineAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.lineAccounts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

var _ store.Store = (*memStore)(nil)

// mockPusher records push deliveries and optionally fails them.
type mockPusher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *mockPusher) Push(_ context.Context, lineUserID string, _ []notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, lineUserID)
	return nil
}

func (p *mockPusher) pushCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// --- seed helpers ---

func seedGift(m *memStore) *models.Gift {
	name := "Aiko"
	occasion := "birthday"
	gift := &models.Gift{
		ID:                 uuid.New(),
		SenderUserID:       uuid.New(),
		RecipientFirstName: &name,
		Occasion:           &occasion,
		BudgetMin:          3000,
		BudgetMax:          8000,
		Status:             models.GiftStatusOpen,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	m.gifts[gift.ID] = gift
	return gift
}

func seedJob(m *memStore, giftID uuid.UUID, status string, createdAt time.Time) *models.GiftJob {
	runID := "gift:" + uuid.New().String()[:8]
	job := &models.GiftJob{
		ID:         uuid.New(),
		GiftID:     giftID,
		ResponseID: "resp_" + uuid.New().String()[:8],
		RunID:      &runID,
		Status:     status,
		TimeoutAt:  createdAt.Add(15 * time.Minute),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	m.jobs[job.ID] = job
	return job
}

func seedLineAccount(m *memStore, userID uuid.UUID) {
	m.lineAccounts[userID] = &models.LineAccount{
		UserID:     userID,
		LineUserID: "U" + uuid.New().String()[:12],
		LinkedAt:   time.Now().UTC(),
	}
}

// validPayloadJSON is a minimal payload that passes ParsePayload.
const validPayloadJSON = `{
  "sake": {"name": "Dassai 39", "image_url": "https://example.com/dassai.jpg"},
  "summary": "A refined junmai daiginjo for a milestone birthday.",
  "reasoning": "Matches the recipient's preference for fragrant, smooth sake.",
  "shops": [{"retailer": "Sake Store Tokyo", "url": "https://shop.example.com/dassai-39"}]
}`
