package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	pkgrepo "github.com/jwalitptl/clinic-booking/pkg/repository"
)

var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// BookingRepository stores bookings. Every write also records a change
	// event in the outbox within the same transaction.
	BookingRepository interface {
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error)
		ListByPreferredDate(ctx context.Context, from, to model.Date) ([]*model.Booking, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.Booking, error)
	}

	ServiceRepository interface {
		ListVisible(ctx context.Context) ([]*model.Service, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
	}

	SettingRepository interface {
		Get(ctx context.Context, key string) (*model.SiteSetting, error)
		Upsert(ctx context.Context, key string, value json.RawMessage) error
		// Delete reports whether a row was removed.
		Delete(ctx context.Context, key string) (bool, error)
	}

	OperatorRepository interface {
		Create(ctx context.Context, operator *model.Operator) error
		Get(ctx context.Context, id uuid.UUID) (*model.Operator, error)
		GetByEmail(ctx context.Context, email string) (*model.Operator, error)
	}

	OutboxRepository = pkgrepo.OutboxRepository
)
