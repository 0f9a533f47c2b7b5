package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
	"github.com/jwalitptl/clinic-booking/pkg/validator"
)

const (
	DefaultListLimit = 200
	MaxListLimit     = 1000
	// MaxCalendarDays bounds one calendar request.
	MaxCalendarDays = 62
)

type Service struct {
	repo        repository.BookingRepository
	serviceRepo repository.ServiceRepository
	validator   *validator.Validator
	linker      *WhatsAppLinker
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewService(repo repository.BookingRepository, serviceRepo repository.ServiceRepository, v *validator.Validator,
	linker *WhatsAppLinker, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		serviceRepo: serviceRepo,
		validator:   v,
		linker:      linker,
		metrics:     m,
		logger:      log,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create validates an intake request and stores it as a pending booking.
func (s *Service) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	validator.NormalizeBooking(req)
	if fields := s.validator.Booking(req); len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}

	booking := &model.Booking{
		PatientName:   req.PatientName,
		Phone:         req.Phone,
		PreferredTime: optional(req.PreferredTime),
		Notes:         optional(req.Notes),
		Status:        model.BookingStatusPending,
	}

	if req.ServiceID != "" {
		id := uuid.MustParse(req.ServiceID)
		svc, err := s.serviceRepo.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidation([]apperrors.FieldError{{Field: "service_id", Message: validator.MsgInvalidService}})
		}
		if err != nil {
			return nil, apperrors.NewInternal(fmt.Errorf("failed to get service: %w", err))
		}
		booking.ServiceID = &svc.ID
		booking.ServiceTitle = &svc.Title
	}

	if req.PreferredDate != "" {
		d, err := model.ParseDate(req.PreferredDate)
		if err != nil {
			return nil, apperrors.NewValidation([]apperrors.FieldError{{Field: "preferred_date", Message: validator.MsgInvalidDate}})
		}
		booking.PreferredDate = &d
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to create booking: %w", err))
	}

	s.metrics.BookingsCreated.Inc()
	s.logger.Info("booking created",
		"booking_id", booking.ID.String(),
		"has_service", booking.ServiceID != nil,
		"has_date", booking.PreferredDate != nil)
	return booking, nil
}

// ListFilter is the raw operator query.
type ListFilter struct {
	Status string
	Date   string
	Limit  int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*model.BookingView, error) {
	filter := model.BookingFilter{Limit: f.Limit}

	if f.Status != "" && f.Status != "all" {
		status := model.BookingStatus(strings.ToLower(f.Status))
		if !status.Valid() {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid status %q", f.Status), nil)
		}
		filter.Status = status
	}
	if f.Date != "" {
		d, err := model.ParseDate(f.Date)
		if err != nil {
			return nil, apperrors.NewBadRequest("invalid date, expected YYYY-MM-DD", err)
		}
		filter.Date = &d
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultListLimit
	case filter.Limit > MaxListLimit:
		filter.Limit = MaxListLimit
	}

	bookings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to list bookings: %w", err))
	}
	return s.views(bookings), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.BookingView, error) {
	b, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("booking", err)
	}
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get booking: %w", err))
	}
	return s.linker.View(b), nil
}

// Calendar groups bookings with a preferred date in [from, to] by day,
// earliest first. Days without bookings are omitted.
func (s *Service) Calendar(ctx context.Context, from, to model.Date) ([]*model.CalendarDay, error) {
	if to.Before(from) {
		return nil, apperrors.NewBadRequest("'to' must not be before 'from'", nil)
	}
	if to.Sub(from.Time) > MaxCalendarDays*24*time.Hour {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("calendar range is limited to %d days", MaxCalendarDays), nil)
	}

	bookings, err := s.repo.ListByPreferredDate(ctx, from, to)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to list bookings: %w", err))
	}

	byDay := make(map[string]*model.CalendarDay)
	for _, b := range bookings {
		if b.PreferredDate == nil {
			continue
		}
		key := b.PreferredDate.String()
		day, ok := byDay[key]
		if !ok {
			day = &model.CalendarDay{Date: *b.PreferredDate, Counts: map[model.BookingStatus]int{}}
			byDay[key] = day
		}
		day.Total++
		day.Counts[b.Status]++
		day.Bookings = append(day.Bookings, s.linker.View(b))
	}

	days := make([]*model.CalendarDay, 0, len(byDay))
	for _, day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days, nil
}

// UpdateStatus sets any status on any booking; there is no transition
// table.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.BookingView, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidation([]apperrors.FieldError{{Field: "status", Message: validator.MsgInvalidValue}})
	}

	b, err := s.repo.UpdateStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("booking", err)
	}
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to update booking status: %w", err))
	}

	s.metrics.BookingStatusChanges.WithLabelValues(string(status)).Inc()
	s.logger.Info("booking status updated", "booking_id", id.String(), "status", string(status))
	return s.linker.View(b), nil
}

func (s *Service) views(bookings []*model.Booking) []*model.BookingView {
	views := make([]*model.BookingView, len(bookings))
	for i, b := range bookings {
		views[i] = s.linker.View(b)
	}
	return views
}
