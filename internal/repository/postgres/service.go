package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
)

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(base BaseRepository) repository.ServiceRepository {
	return &serviceRepository{base}
}

func (r *serviceRepository) ListVisible(ctx context.Context) ([]*model.Service, error) {
	query := `
		SELECT id, title, description, icon, display_order, is_visible, created_at
		FROM services
		WHERE is_visible = TRUE
		ORDER BY display_order ASC, created_at ASC
	`
	services := []*model.Service{}
	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `
		SELECT id, title, description, icon, display_order, is_visible, created_at
		FROM services
		WHERE id = $1
	`
	var service model.Service
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		return nil, notFound(err)
	}
	return &service, nil
}
