package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

type JWTService interface {
	GenerateAccessToken(op *model.Operator) (string, time.Time, error)
	ValidateToken(token string) (*model.TokenClaims, error)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type jwtService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewJWTService(secret, issuer string, expiry time.Duration) JWTService {
	return &jwtService{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

func (s *jwtService) GenerateAccessToken(op *model.Operator) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: op.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *jwtService) ValidateToken(token string) (*model.TokenClaims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	operatorID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &model.TokenClaims{OperatorID: operatorID, Email: c.Email}, nil
}
