package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTypeRecommendReady  = "gift_recommend_ready"
	NotificationTypeRecommendFailed = "gift_recommend_failed"
)

// Notification is an in-app notification record for the gift sender.
type Notification struct {
	ID        uuid.UUID      `db:"id"         json:"id"`
	UserID    uuid.UUID      `db:"user_id"    json:"user_id"`
	Type      string         `db:"type"       json:"type"`
	Payload   map[string]any `db:"payload"    json:"payload,omitempty"`
	ReadAt    *time.Time     `db:"read_at"    json:"read_at,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// LineAccount links an app user to a LINE messaging account. Push delivery
// is skipped for users without a linked account.
type LineAccount struct {
	UserID     uuid.UUID `db:"user_id"      json:"user_id"`
	LineUserID string    `db:"line_user_id" json:"line_user_id"`
	LinkedAt   time.Time `db:"linked_at"    json:"linked_at"`
}
