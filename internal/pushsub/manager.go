// Package pushsub lets an operator opt in to booking notifications on this
// device and records the subscription with the API so the server can
// target it later.
package pushsub

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/notify"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

const MsgPermissionDenied = "تم رفض الإذن"

// ErrPermissionDenied is returned by Subscribe when the operator refuses
// notifications.
var ErrPermissionDenied = apperrors.PermissionDenied(MsgPermissionDenied)

// Registry is the device-local push delivery registration.
type Registry interface {
	Current() (*model.PushSubscription, error)
	Register(channel string) (*model.PushSubscription, error)
	Unregister() error
}

// Remote persists the subscription payload keyed by the signed in operator.
type Remote interface {
	GetPushSubscription(ctx context.Context) (*model.PushSubscription, error)
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context) error
}

type Status struct {
	Permission   notify.Permission
	Subscription *model.PushSubscription
	// Server is the payload the API holds for the operator, possibly
	// registered from another device.
	Server *model.PushSubscription
}

func (s Status) Subscribed() bool {
	return s.Subscription != nil
}

// InSync reports whether the server holds this device's registration.
func (s Status) InSync() bool {
	if s.Subscription == nil || s.Server == nil {
		return s.Subscription == nil && s.Server == nil
	}
	return s.Subscription.DeviceID == s.Server.DeviceID
}

type Manager struct {
	mu        sync.Mutex
	displayer notify.Displayer
	registry  Registry
	remote    Remote
	channel   string
	logger    *zap.Logger
}

// NewManager returns a manager registering for channel, usually
// model.ChangeChannel("bookings", model.ChangeInsert).
func NewManager(displayer notify.Displayer, registry Registry, remote Remote, channel string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		displayer: displayer,
		registry:  registry,
		remote:    remote,
		channel:   channel,
		logger:    logger,
	}
}

func (m *Manager) Status(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.registry.Current()
	if err != nil {
		return Status{}, fmt.Errorf("failed to read subscription: %w", err)
	}
	server, err := m.remote.GetPushSubscription(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return Status{Permission: m.displayer.Permission(), Subscription: sub, Server: server}, nil
}

// Subscribe enables notifications. It reports false with a nil error when
// this device was already subscribed.
func (m *Manager) Subscribe(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.registry.Current()
	if err != nil {
		return false, fmt.Errorf("failed to read subscription: %w", err)
	}
	if current != nil {
		return false, nil
	}

	permission, err := m.displayer.RequestPermission(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to request permission: %w", err)
	}
	if permission != notify.PermissionGranted {
		return false, ErrPermissionDenied
	}

	sub, err := m.registry.Register(m.channel)
	if err != nil {
		return false, fmt.Errorf("failed to register subscription: %w", err)
	}

	if err := m.remote.SavePushSubscription(ctx, sub); err != nil {
		if rbErr := m.registry.Unregister(); rbErr != nil {
			m.logger.Error("failed to roll back local subscription", zap.Error(rbErr))
		}
		return false, fmt.Errorf("failed to save subscription: %w", err)
	}

	m.logger.Info("push subscription registered",
		zap.String("device_id", sub.DeviceID),
		zap.String("channel", sub.Channel))
	return true, nil
}

// Unsubscribe removes the remote payload and then the local registration.
// It is a no-op when this device is not subscribed.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.registry.Current()
	if err != nil {
		return fmt.Errorf("failed to read subscription: %w", err)
	}
	if current == nil {
		return nil
	}

	if err := m.remote.DeletePushSubscription(ctx); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if err := m.registry.Unregister(); err != nil {
		return fmt.Errorf("failed to unregister subscription: %w", err)
	}

	m.logger.Info("push subscription removed", zap.String("device_id", current.DeviceID))
	return nil
}
