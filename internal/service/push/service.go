// Package push stores operators' push subscriptions in site_settings so a
// server side sender can target them.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/validator"
)

type Service struct {
	settings  repository.SettingRepository
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(settings repository.SettingRepository, v *validator.Validator, log *logger.Logger) *Service {
	return &Service{settings: settings, validator: v, logger: log, now: time.Now}
}

// Save replaces the operator's subscription payload.
func (s *Service) Save(ctx context.Context, operatorID uuid.UUID, sub *model.PushSubscription) (*model.PushSubscription, error) {
	if fields := s.validator.Struct(sub); len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now().UTC()
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to encode subscription: %w", err))
	}
	if err := s.settings.Upsert(ctx, model.PushSubscriptionKey(operatorID), payload); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	s.logger.Info("push subscription saved",
		"operator_id", operatorID.String(),
		"device_id", sub.DeviceID,
		"platform", sub.Platform)
	return sub, nil
}

func (s *Service) Get(ctx context.Context, operatorID uuid.UUID) (*model.PushSubscription, error) {
	setting, err := s.settings.Get(ctx, model.PushSubscriptionKey(operatorID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("push subscription", err)
	}
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get push subscription: %w", err))
	}

	var sub model.PushSubscription
	if err := json.Unmarshal(setting.Value, &sub); err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to decode push subscription: %w", err))
	}
	return &sub, nil
}

// Delete removes the payload. Deleting a missing subscription succeeds.
func (s *Service) Delete(ctx context.Context, operatorID uuid.UUID) error {
	removed, err := s.settings.Delete(ctx, model.PushSubscriptionKey(operatorID))
	if err != nil {
		return apperrors.NewInternal(err)
	}
	if removed {
		s.logger.Info("push subscription deleted", "operator_id", operatorID.String())
	}
	return nil
}
