package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
)

type operatorRepository struct {
	BaseRepository
}

func NewOperatorRepository(base BaseRepository) repository.OperatorRepository {
	return &operatorRepository{base}
}

func (r *operatorRepository) Create(ctx context.Context, operator *model.Operator) error {
	operator.ID = uuid.New()
	operator.CreatedAt = time.Now().UTC()
	operator.Email = strings.ToLower(strings.TrimSpace(operator.Email))

	query := `
		INSERT INTO operators (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		operator.ID,
		operator.Email,
		operator.Name,
		operator.PasswordHash,
		operator.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

func (r *operatorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	query := `SELECT id, email, name, password_hash, created_at FROM operators WHERE id = $1`

	var operator model.Operator
	if err := r.db.GetContext(ctx, &operator, query, id); err != nil {
		return nil, notFound(err)
	}
	return &operator, nil
}

func (r *operatorRepository) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	query := `SELECT id, email, name, password_hash, created_at FROM operators WHERE email = $1`

	var operator model.Operator
	if err := r.db.GetContext(ctx, &operator, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, notFound(err)
	}
	return &operator, nil
}
