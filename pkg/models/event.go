package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded in the append-only job event log.
const (
	EventTypeQueued = "queued"
	EventTypeStatus = "status"
	EventTypeError  = "error"
	EventTypeFinal  = "final"
)

// GiftJobEvent is one observable happening in a job's lifetime. The log is
// append-only, ordered by creation time, and used purely for observability
// and client streaming — never for control decisions.
type GiftJobEvent struct {
	ID        uuid.UUID      `db:"id"         json:"id"`
	JobID     uuid.UUID      `db:"job_id"     json:"job_id"`
	EventType string         `db:"event_type" json:"event_type"`
	Label     *string        `db:"label"      json:"label,omitempty"`
	Message   *string        `db:"message"    json:"message,omitempty"`
	Payload   map[string]any `db:"payload"    json:"payload,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
