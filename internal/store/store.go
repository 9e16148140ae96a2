package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kanpai-app/kanpai/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// ErrStatusConflict is returned when a job status update matched no row
// because the job is already terminal or its status changed underneath the
// caller. Concurrent reconcile passes treat this as a benign lost race.
var ErrStatusConflict = errors.New("job status conflict")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateGiftJob(ctx context.Context, job *models.GiftJob) error
	GetGiftJob(ctx context.Context, id uuid.UUID) (*models.GiftJob, error)
	// ListActiveGiftJobs returns up to limit non-terminal jobs, oldest first.
	ListActiveGiftJobs(ctx context.Context, limit int) ([]*models.GiftJob, error)
	UpdateGiftJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error

	AppendJobEvent(ctx context.Context, event *models.GiftJobEvent) error
	ListJobEvents(ctx context.Context, jobID uuid.UUID, since time.Time) ([]*models.GiftJobEvent, error)

	GetGift(ctx context.Context, id uuid.UUID) (*models.Gift, error)
	UpdateGiftStatus(ctx context.Context, id uuid.UUID, status string) error

	UpsertRecommendation(ctx context.Context, rec *models.GiftRecommendation) error
	GetRecommendationByGiftID(ctx context.Context, giftID uuid.UUID) (*models.GiftRecommendation, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	GetLineAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.LineAccount, error)
}

// JobUpdateParams is the resolved form of a set of JobUpdateOptions.
// Exported so alternative Store implementations can interpret the options.
type JobUpdateParams struct {
	LastError      *string
	SetStartedAt   bool
	ExpectedStatus []string
}

type JobUpdateOption func(*JobUpdateParams)

// ApplyJobUpdateOptions folds opts into a JobUpdateParams.
func ApplyJobUpdateOptions(opts []JobUpdateOption) JobUpdateParams {
	var params JobUpdateParams
	for _, opt := range opts {
		opt(&params)
	}
	return params
}

// WithLastError records the failure reason alongside a FAILED transition.
func WithLastError(msg string) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.LastError = &msg
	}
}

// WithStartedAt stamps started_at, used on the first RUNNING observation.
func WithStartedAt() JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.SetStartedAt = true
	}
}

// WithExpectedStatus makes the update conditional on the job currently
// holding one of the given statuses. The write matches no row otherwise.
func WithExpectedStatus(statuses ...string) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.ExpectedStatus = statuses
	}
}
