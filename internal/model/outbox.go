package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// OutboxEvent is a change event waiting to be published. Channel is the
// broker channel it goes to, e.g. "bookings:INSERT".
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Channel      string          `db:"channel" json:"channel"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
