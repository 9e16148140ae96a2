package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	GiftStatusOpen           = "OPEN"
	GiftStatusRecommendReady = "RECOMMEND_READY"
	GiftStatusClosed         = "CLOSED"
)

// Gift is the parent entity a recommendation job serves. One gift has at
// most one active job at a time but may accumulate historical terminal jobs.
type Gift struct {
	ID                 uuid.UUID `db:"id"                   json:"id"`
	SenderUserID       uuid.UUID `db:"sender_user_id"       json:"sender_user_id"`
	RecipientFirstName *string   `db:"recipient_first_name" json:"recipient_first_name,omitempty"`
	Occasion           *string   `db:"occasion"             json:"occasion,omitempty"`
	BudgetMin          int       `db:"budget_min"           json:"budget_min"`
	BudgetMax          int       `db:"budget_max"           json:"budget_max"`
	Status             string    `db:"status"               json:"status"`
	CreatedAt          time.Time `db:"created_at"           json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"           json:"updated_at"`
}
