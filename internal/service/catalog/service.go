package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

const visibleKey = "services:visible"

// Service serves the public list of services from a short-lived cache.
type Service struct {
	repo  repository.ServiceRepository
	cache *cache.Cache
}

func NewService(repo repository.ServiceRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

// ListVisible returns the visible services ordered by display order.
func (s *Service) ListVisible(ctx context.Context) ([]*model.Service, error) {
	if cached, ok := s.cache.Get(visibleKey); ok {
		return cached.([]*model.Service), nil
	}

	services, err := s.repo.ListVisible(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to list services: %w", err))
	}
	if services == nil {
		services = []*model.Service{}
	}
	s.cache.SetDefault(visibleKey, services)
	return services, nil
}
