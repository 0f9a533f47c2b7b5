package model

import (
	"time"

	"github.com/google/uuid"
)

// Service is a treatment offered by the clinic. The booking wizard only
// reads the visible ones.
type Service struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description"`
	Icon         *string   `db:"icon" json:"icon"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	IsVisible    bool      `db:"is_visible" json:"is_visible"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
