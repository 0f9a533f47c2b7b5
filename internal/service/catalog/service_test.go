package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

type mockServiceRepo struct {
	listFn func(ctx context.Context) ([]*model.Service, error)
	calls  int
}

func (m *mockServiceRepo) ListVisible(ctx context.Context) ([]*model.Service, error) {
	m.calls++
	return m.listFn(ctx)
}

func (m *mockServiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	return nil, errors.New("not used")
}

func TestListVisibleIsCached(t *testing.T) {
	repo := &mockServiceRepo{listFn: func(ctx context.Context) ([]*model.Service, error) {
		return []*model.Service{{ID: uuid.New(), Title: "تبييض الأسنان"}}, nil
	}}
	svc := NewService(repo, time.Minute)

	for i := 0; i < 3; i++ {
		services, err := svc.ListVisible(context.Background())
		require.NoError(t, err)
		require.Len(t, services, 1)
	}
	assert.Equal(t, 1, repo.calls)
}

func TestListVisibleEmptyAndError(t *testing.T) {
	repo := &mockServiceRepo{listFn: func(ctx context.Context) ([]*model.Service, error) {
		return nil, nil
	}}
	services, err := NewService(repo, 0).ListVisible(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, services)
	assert.Empty(t, services)

	failing := &mockServiceRepo{listFn: func(ctx context.Context) ([]*model.Service, error) {
		return nil, errors.New("db down")
	}}
	svc := NewService(failing, time.Minute)
	_, err = svc.ListVisible(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInternal))

	// errors are not cached
	_, _ = svc.ListVisible(context.Background())
	assert.Equal(t, 2, failing.calls)
}
