package push

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/validator"
)

type memorySettings struct {
	values map[string]json.RawMessage
}

func (m *memorySettings) Get(ctx context.Context, key string) (*model.SiteSetting, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.SiteSetting{Key: key, Value: v}, nil
}

func (m *memorySettings) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	m.values[key] = value
	return nil
}

func (m *memorySettings) Delete(ctx context.Context, key string) (bool, error) {
	_, ok := m.values[key]
	delete(m.values, key)
	return ok, nil
}

func newTestService() (*Service, *memorySettings) {
	settings := &memorySettings{values: map[string]json.RawMessage{}}
	return NewService(settings, validator.New(time.UTC), logger.Nop()), settings
}

func TestSaveGetDelete(t *testing.T) {
	svc, settings := newTestService()
	operatorID := uuid.New()

	_, err := svc.Get(context.Background(), operatorID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))

	saved, err := svc.Save(context.Background(), operatorID, &model.PushSubscription{
		DeviceID: "device-1", Platform: "linux", Channel: "bookings:INSERT",
	})
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Contains(t, settings.values, "push_subscription_"+operatorID.String())

	got, err := svc.Get(context.Background(), operatorID)
	require.NoError(t, err)
	assert.Equal(t, "device-1", got.DeviceID)

	require.NoError(t, svc.Delete(context.Background(), operatorID))
	require.NoError(t, svc.Delete(context.Background(), operatorID))
	assert.Empty(t, settings.values)
}

func TestSaveValidates(t *testing.T) {
	svc, settings := newTestService()

	_, err := svc.Save(context.Background(), uuid.New(), &model.PushSubscription{Platform: "linux"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Equal(t, "device_id", appErr.Fields[0].Field)
	assert.Empty(t, settings.values)
}
