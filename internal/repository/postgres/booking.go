package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
)

const bookingColumns = `
	b.id, b.patient_name, b.phone, b.service_id, s.title AS service_title,
	b.preferred_date, b.preferred_time, b.notes, b.status, b.created_at
`

const bookingFrom = `
	FROM bookings b
	LEFT JOIN services s ON s.id = b.service_id
`

type bookingRepository struct {
	BaseRepository
}

func NewBookingRepository(base BaseRepository) repository.BookingRepository {
	return &bookingRepository{base}
}

// Create inserts the booking and its INSERT change event atomically.
func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	booking.ID = uuid.New()
	booking.CreatedAt = time.Now().UTC()
	if booking.Status == "" {
		booking.Status = model.BookingStatusPending
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO bookings (
				id, patient_name, phone, service_id,
				preferred_date, preferred_time, notes,
				status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := tx.ExecContext(ctx, query,
			booking.ID,
			booking.PatientName,
			booking.Phone,
			booking.ServiceID,
			booking.PreferredDate,
			booking.PreferredTime,
			booking.Notes,
			booking.Status,
			booking.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		return insertChangeEventTx(ctx, tx, model.BookingCollection, model.ChangeInsert, nil, booking)
	})
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return getBooking(ctx, r.db, id)
}

func getBooking(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingFrom + ` WHERE b.id = $1`

	var booking model.Booking
	if err := sqlx.GetContext(ctx, q, &booking, query, id); err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("b.preferred_date = $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + bookingFrom
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	bookings := []*model.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListByPreferredDate(ctx context.Context, from, to model.Date) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + bookingFrom + `
		WHERE b.preferred_date BETWEEN $1 AND $2
		ORDER BY b.preferred_date ASC, b.preferred_time ASC NULLS LAST, b.created_at ASC
	`
	bookings := []*model.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list bookings by date: %w", err)
	}
	return bookings, nil
}

// UpdateStatus sets any status regardless of the current one and records an
// UPDATE change event carrying the row before and after.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.Booking, error) {
	var updated *model.Booking

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var previous model.Booking
		query := `SELECT ` + bookingColumns + bookingFrom + ` WHERE b.id = $1 FOR UPDATE OF b`
		if err := sqlx.GetContext(ctx, tx, &previous, query, id); err != nil {
			return notFound(err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = $1 WHERE id = $2`, status, id); err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}

		var err error
		updated, err = getBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		return insertChangeEventTx(ctx, tx, model.BookingCollection, model.ChangeUpdate, &previous, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
