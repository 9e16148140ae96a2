package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kanpai-app/kanpai/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Gift Jobs ---

func (s *PostgresStore) CreateGiftJob(ctx context.Context, job *models.GiftJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gift_jobs (id, gift_id, response_id, run_id, status, metadata, handoff_summary, last_error, started_at, completed_at, timeout_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.GiftID, job.ResponseID, job.RunID, job.Status, job.Metadata,
		job.HandoffSummary, job.LastError, job.StartedAt, job.CompletedAt,
		job.TimeoutAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create gift job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGiftJob(ctx context.Context, id uuid.UUID) (*models.GiftJob, error) {
	var j models.GiftJob
	err := s.pool.QueryRow(ctx,
		`SELECT id, gift_id, response_id, run_id, status, metadata, handoff_summary, last_error, started_at, completed_at, timeout_at, created_at, updated_at
		 FROM gift_jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.GiftID, &j.ResponseID, &j.RunID, &j.Status, &j.Metadata,
		&j.HandoffSummary, &j.LastError, &j.StartedAt, &j.CompletedAt,
		&j.TimeoutAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gift job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) ListActiveGiftJobs(ctx context.Context, limit int) ([]*models.GiftJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, gift_id, response_id, run_id, status, metadata, handoff_summary, last_error, started_at, completed_at, timeout_at, created_at, updated_at
		 FROM gift_jobs WHERE status = ANY($1) ORDER BY created_at ASC LIMIT $2`,
		models.ActiveJobStatuses, limit)
	if err != nil {
		return nil, fmt.Errorf("list active gift jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.GiftJob
	for rows.Next() {
		var j models.GiftJob
		if err := rows.Scan(&j.ID, &j.GiftID, &j.ResponseID, &j.RunID, &j.Status, &j.Metadata,
			&j.HandoffSummary, &j.LastError, &j.StartedAt, &j.CompletedAt,
			&j.TimeoutAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan gift job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// UpdateGiftJobStatus applies a forward status transition. Rows already in a
// terminal state never match, so no write can leave COMPLETED, FAILED or
// CANCELLED. A zero-row update on an existing job returns ErrStatusConflict.
func (s *PostgresStore) UpdateGiftJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := ApplyJobUpdateOptions(opts)

	now := time.Now().UTC()
	query := `UPDATE gift_jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if params.SetStartedAt {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if models.IsTerminalJobStatus(status) {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.LastError != nil {
		query += fmt.Sprintf(", last_error = $%d", argIdx)
		args = append(args, *params.LastError)
		argIdx++
	}

	query += " WHERE id = $1 AND status = ANY($" + fmt.Sprint(argIdx) + ")"
	expected := params.ExpectedStatus
	if len(expected) == 0 {
		expected = models.ActiveJobStatuses
	}
	args = append(args, expected)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update gift job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM gift_jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check gift job exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// --- Job Events ---

func (s *PostgresStore) AppendJobEvent(ctx context.Context, event *models.GiftJobEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gift_job_events (id, job_id, event_type, label, message, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.JobID, event.EventType, event.Label, event.Message,
		event.Payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append job event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListJobEvents(ctx context.Context, jobID uuid.UUID, since time.Time) ([]*models.GiftJobEvent, error) {
	conditions := []string{"job_id = $1"}
	args := []any{jobID}
	if !since.IsZero() {
		conditions = append(conditions, "created_at > $2")
		args = append(args, since)
	}

	query := fmt.Sprintf(
		`SELECT id, job_id, event_type, label, message, payload, created_at
		 FROM gift_job_events WHERE %s ORDER BY created_at ASC`,
		strings.Join(conditions, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list job events: %w", err)
	}
	defer rows.Close()

	var events []*models.GiftJobEvent
	for rows.Next() {
		var e models.GiftJobEvent
		if err := rows.Scan(&e.ID, &e.JobID, &e.EventType, &e.Label, &e.Message,
			&e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// --- Gifts ---

func (s *PostgresStore) GetGift(ctx context.Context, id uuid.UUID) (*models.Gift, error) {
	var g models.Gift
	err := s.pool.QueryRow(ctx,
		`SELECT id, sender_user_id, recipient_first_name, occasion, budget_min, budget_max, status, created_at, updated_at
		 FROM gifts WHERE id = $1`, id,
	).Scan(&g.ID, &g.SenderUserID, &g.RecipientFirstName, &g.Occasion,
		&g.BudgetMin, &g.BudgetMax, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gift: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) UpdateGiftStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE gifts SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update gift status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Recommendations ---

func (s *PostgresStore) UpsertRecommendation(ctx context.Context, rec *models.GiftRecommendation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gift_recommendations (id, gift_id, payload, model, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (gift_id) DO UPDATE SET
		   payload = EXCLUDED.payload,
		   model = EXCLUDED.model,
		   created_at = EXCLUDED.created_at`,
		rec.ID, rec.GiftID, rec.Payload, rec.Model, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert recommendation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRecommendationByGiftID(ctx context.Context, giftID uuid.UUID) (*models.GiftRecommendation, error) {
	var r models.GiftRecommendation
	err := s.pool.QueryRow(ctx,
		`SELECT id, gift_id, payload, model, created_at
		 FROM gift_recommendations WHERE gift_id = $1`, giftID,
	).Scan(&r.ID, &r.GiftID, &r.Payload, &r.Model, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation by gift: %w", err)
	}
	return &r, nil
}

// --- Notifications ---

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.UserID, n.Type, n.Payload, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// --- LINE accounts ---

func (s *PostgresStore) GetLineAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.LineAccount, error) {
	var a models.LineAccount
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, line_user_id, linked_at FROM line_accounts WHERE user_id = $1`, userID,
	).Scan(&a.UserID, &a.LineUserID, &a.LinkedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get line account: %w", err)
	}
	return &a, nil
}

var _ Store = (*PostgresStore)(nil)
