package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator is a back-office user allowed to see and manage bookings.
type Operator struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Operator    *Operator `json:"operator"`
}

// TokenClaims is what an access token carries about its operator.
type TokenClaims struct {
	OperatorID uuid.UUID `json:"operator_id"`
	Email      string    `json:"email"`
}
