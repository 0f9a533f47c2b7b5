package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authHandler "github.com/jwalitptl/clinic-booking/internal/handler/auth"
	bookingHandler "github.com/jwalitptl/clinic-booking/internal/handler/booking"
	catalogHandler "github.com/jwalitptl/clinic-booking/internal/handler/catalog"
	"github.com/jwalitptl/clinic-booking/internal/handler/health"
	pushHandler "github.com/jwalitptl/clinic-booking/internal/handler/push"
	realtimeHandler "github.com/jwalitptl/clinic-booking/internal/handler/realtime"
	"github.com/jwalitptl/clinic-booking/internal/middleware"
	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/realtime"
	bookingsvc "github.com/jwalitptl/clinic-booking/internal/service/booking"
	"github.com/jwalitptl/clinic-booking/pkg/messaging/memory"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
)

const validToken = "good-token"

type stubValidator struct{}

func (stubValidator) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	if token != validToken {
		return nil, errors.New("bad token")
	}
	return &model.TokenClaims{OperatorID: uuid.New(), Email: "admin@clinic.test"}, nil
}

type stubAuth struct{}

func (stubAuth) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	return &model.LoginResponse{AccessToken: validToken}, nil
}

type stubCatalog struct{}

func (stubCatalog) ListVisible(ctx context.Context) ([]*model.Service, error) {
	return []*model.Service{}, nil
}

type stubBookings struct{}

func (stubBookings) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	return &model.Booking{ID: uuid.New(), PatientName: req.PatientName, Status: model.BookingStatusPending}, nil
}

func (stubBookings) List(ctx context.Context, f bookingsvc.ListFilter) ([]*model.BookingView, error) {
	return []*model.BookingView{}, nil
}

func (stubBookings) Get(ctx context.Context, id uuid.UUID) (*model.BookingView, error) {
	return &model.BookingView{}, nil
}

func (stubBookings) Calendar(ctx context.Context, from, to model.Date) ([]*model.CalendarDay, error) {
	return []*model.CalendarDay{}, nil
}

func (stubBookings) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.BookingView, error) {
	return &model.BookingView{}, nil
}

type stubPush struct{}

func (stubPush) Save(ctx context.Context, operatorID uuid.UUID, sub *model.PushSubscription) (*model.PushSubscription, error) {
	return sub, nil
}

func (stubPush) Get(ctx context.Context, operatorID uuid.UUID) (*model.PushSubscription, error) {
	return &model.PushSubscription{}, nil
}

func (stubPush) Delete(ctx context.Context, operatorID uuid.UUID) error {
	return nil
}

func newTestRouter(t *testing.T, burst int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.NewTestMetrics()
	broker := memory.NewBroker(1)
	t.Cleanup(func() { broker.Close() })

	r := NewRouter(
		middleware.NewAuthMiddleware(stubValidator{}),
		Handlers{
			Auth:     authHandler.NewHandler(stubAuth{}),
			Booking:  bookingHandler.NewHandler(stubBookings{}, func() model.Date { return model.NewDate(2025, 3, 10) }),
			Catalog:  catalogHandler.NewHandler(stubCatalog{}),
			Push:     pushHandler.NewHandler(stubPush{}),
			Realtime: realtimeHandler.NewHandler(realtime.NewBrokerFeed(broker, nil), m),
			Health:   health.NewHandler(nil),
		},
		RouterConfig{
			RateLimitEnabled: true,
			RateLimit:        0.001,
			RateBurst:        burst,
			CORSConfig:       middleware.DefaultCORSConfig(),
			MaxBodyBytes:     1 << 10,
			MetricsEnabled:   true,
			MetricsPath:      "/metrics",
			Metrics:          m,
		},
	)
	r.Setup()
	return r.Engine()
}

func serve(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := newTestRouter(t, 5)

	w := serve(r, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/services", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	w = serve(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	r := newTestRouter(t, 5)

	paths := []string{
		"/api/v1/admin/bookings",
		"/api/v1/admin/bookings/calendar",
		"/api/v1/admin/push-subscription",
		"/api/v1/admin/realtime/bookings?event=INSERT",
	}
	for _, path := range paths {
		w := serve(r, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = serve(r, http.MethodGet, path, "", "wrong")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := serve(r, http.MethodGet, "/api/v1/admin/bookings", "", validToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_IntakeIsRateLimited(t *testing.T) {
	r := newTestRouter(t, 1)
	body := `{"patient_name":"أحمد","phone":"777123456"}`

	w := serve(r, http.MethodPost, "/api/v1/bookings", body, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/bookings", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// other public routes share no limiter with intake
	w = serve(r, http.MethodGet, "/api/v1/services", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	r := newTestRouter(t, 5)
	body := `{"patient_name":"` + strings.Repeat("a", 2<<10) + `"}`

	w := serve(r, http.MethodPost, "/api/v1/bookings", body, "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
