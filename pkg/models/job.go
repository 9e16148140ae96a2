// Package models contains shared data models used across the kanpai codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// ActiveJobStatuses are the non-terminal statuses the reconciler polls for.
var ActiveJobStatuses = []string{JobStatusQueued, JobStatusRunning}

// IsTerminalJobStatus reports whether a job in this status may never
// transition again.
func IsTerminalJobStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// GiftJob tracks one background recommendation inference request. A job is
// created by the submitter in QUEUED and mutated exclusively by the
// reconciler; ResponseID is the external polling key and is immutable once
// set. Jobs are never deleted.
type GiftJob struct {
	ID             uuid.UUID      `db:"id"              json:"id"`
	GiftID         uuid.UUID      `db:"gift_id"         json:"gift_id"`
	ResponseID     string         `db:"response_id"     json:"response_id"`
	RunID          *string        `db:"run_id"          json:"run_id,omitempty"`
	Status         string         `db:"status"          json:"status"`
	Metadata       map[string]any `db:"metadata"        json:"metadata,omitempty"`
	HandoffSummary *string        `db:"handoff_summary" json:"handoff_summary,omitempty"`
	LastError      *string        `db:"last_error"      json:"last_error,omitempty"`
	StartedAt      *time.Time     `db:"started_at"      json:"started_at,omitempty"`
	CompletedAt    *time.Time     `db:"completed_at"    json:"completed_at,omitempty"`
	TimeoutAt      time.Time      `db:"timeout_at"      json:"timeout_at"`
	CreatedAt      time.Time      `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"      json:"updated_at"`
}

// TimedOut reports whether the job's local safety window has elapsed.
func (j *GiftJob) TimedOut(now time.Time) bool {
	return now.After(j.TimeoutAt)
}
