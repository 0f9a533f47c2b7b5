package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
	"github.com/jwalitptl/clinic-booking/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLocked             = errors.New("too many failed attempts, please try again later")
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

type Service struct {
	operators repository.OperatorRepository
	jwtSvc    auth.JWTService
	hasher    security.PasswordHasher
	// failed login attempts per email
	attempts *cache.Cache
	logger   *logger.Logger
}

func NewService(operators repository.OperatorRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, log *logger.Logger) *Service {
	return &Service{
		operators: operators,
		jwtSvc:    jwtSvc,
		hasher:    hasher,
		attempts:  cache.New(lockoutDuration, time.Hour),
		logger:    log,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if n, ok := s.attempts.Get(email); ok && n.(int) >= maxLoginAttempts {
		return nil, apperrors.NewUnauthorized(ErrLocked.Error(), nil)
	}

	op, err := s.operators.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.failed(email)
		return nil, apperrors.NewUnauthorized(ErrInvalidCredentials.Error(), nil)
	}
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get operator: %w", err))
	}

	if err := s.hasher.Compare(op.PasswordHash, password); err != nil {
		s.failed(email)
		return nil, apperrors.NewUnauthorized(ErrInvalidCredentials.Error(), nil)
	}
	s.attempts.Delete(email)

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(op)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to generate token: %w", err))
	}

	s.logger.Info("operator logged in", "operator_id", op.ID.String())
	return &model.LoginResponse{AccessToken: token, ExpiresAt: expiresAt, Operator: op}, nil
}

func (s *Service) failed(email string) {
	if _, err := s.attempts.IncrementInt(email, 1); err != nil {
		s.attempts.SetDefault(email, 1)
	}
	s.logger.Warn("failed login attempt", "email", email)
}

func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}

// EnsureOperator creates the operator unless one with that email exists.
// It reports whether a new operator was created.
func (s *Service) EnsureOperator(ctx context.Context, email, name, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.operators.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("failed to get operator: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	op := &model.Operator{Email: email, Name: name, PasswordHash: hash}
	if err := s.operators.Create(ctx, op); err != nil {
		return false, fmt.Errorf("failed to create operator: %w", err)
	}
	s.logger.Info("operator created", "operator_id", op.ID.String(), "email", email)
	return true, nil
}
