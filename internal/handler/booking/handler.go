package booking

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	bookingsvc "github.com/jwalitptl/clinic-booking/internal/service/booking"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/httputil"
)

type Service interface {
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	List(ctx context.Context, f bookingsvc.ListFilter) ([]*model.BookingView, error)
	Get(ctx context.Context, id uuid.UUID) (*model.BookingView, error)
	Calendar(ctx context.Context, from, to model.Date) ([]*model.CalendarDay, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.BookingView, error)
}

type Handler struct {
	svc Service
	// today gives the default calendar month
	today func() model.Date
}

func NewHandler(svc Service, today func() model.Date) *Handler {
	return &Handler{svc: svc, today: today}
}

// RegisterRoutes mounts the intake endpoint on public (which the caller
// rate limits) and the operator endpoints on admin.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/bookings", h.CreateBooking)

	bookings := admin.Group("/bookings")
	{
		bookings.GET("", h.ListBookings)
		bookings.GET("/calendar", h.Calendar)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/status", h.UpdateStatus)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid request body", err))
		return
	}

	booking, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, booking)
}

func (h *Handler) ListBookings(c *gin.Context) {
	filter := bookingsvc.ListFilter{
		Status: c.Query("status"),
		Date:   c.Query("date"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewBadRequest("invalid limit", err))
			return
		}
		filter.Limit = limit
	}

	bookings, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, bookings)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid booking ID", err))
		return
	}

	booking, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, booking)
}

// Calendar defaults to the current month when from/to are omitted.
func (h *Handler) Calendar(c *gin.Context) {
	today := h.today()
	from := model.NewDate(today.Year(), today.Month(), 1)
	to := model.DateOf(from.AddDate(0, 1, -1))

	if raw := c.Query("from"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewBadRequest("invalid 'from' date, expected YYYY-MM-DD", err))
			return
		}
		from = d
	}
	if raw := c.Query("to"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewBadRequest("invalid 'to' date, expected YYYY-MM-DD", err))
			return
		}
		to = d
	}

	days, err := h.svc.Calendar(c.Request.Context(), from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"from": from,
		"to":   to,
		"days": days,
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid booking ID", err))
		return
	}

	var req model.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("status is required", err))
		return
	}

	booking, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, booking)
}
