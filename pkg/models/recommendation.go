package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GiftRecommendation is the persisted, validated output of a completed
// recommendation job, keyed one-per-gift (repeat jobs overwrite).
type GiftRecommendation struct {
	ID        uuid.UUID       `db:"id"         json:"id"`
	GiftID    uuid.UUID       `db:"gift_id"    json:"gift_id"`
	Payload   json.RawMessage `db:"payload"    json:"payload"`
	Model     string          `db:"model"      json:"model"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
