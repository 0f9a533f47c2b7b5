package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost    = 12
	MinPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLen = 72
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrMismatch         = errors.New("password does not match")
)

// PasswordHasher hashes operator passwords and checks login attempts.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns ErrMismatch when password is not the one hashed.
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	switch {
	case len(password) < MinPasswordLen:
		return "", ErrPasswordTooShort
	case len(password) > MaxPasswordLen:
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
