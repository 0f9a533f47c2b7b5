package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SiteSetting is a key/value row in site_settings.
type SiteSetting struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Key       string          `db:"key" json:"key"`
	Value     json.RawMessage `db:"value" json:"value"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// PushSubscriptionKey is the site_settings key holding an operator's push
// subscription payload.
func PushSubscriptionKey(operatorID uuid.UUID) string {
	return fmt.Sprintf("push_subscription_%s", operatorID)
}

// PushSubscription identifies one registered delivery endpoint of an operator.
type PushSubscription struct {
	DeviceID  string    `json:"device_id" validate:"required"`
	Platform  string    `json:"platform" validate:"required"`
	Channel   string    `json:"channel" validate:"required"`
	Endpoint  string    `json:"endpoint,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
