package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-booking/internal/handler"
	"github.com/jwalitptl/clinic-booking/internal/handler/auth"
	"github.com/jwalitptl/clinic-booking/internal/handler/booking"
	"github.com/jwalitptl/clinic-booking/internal/handler/catalog"
	"github.com/jwalitptl/clinic-booking/internal/handler/health"
	"github.com/jwalitptl/clinic-booking/internal/handler/push"
	"github.com/jwalitptl/clinic-booking/internal/handler/realtime"
	"github.com/jwalitptl/clinic-booking/internal/middleware"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
)

// Handlers groups every route handler of the API.
type Handlers struct {
	Auth     *auth.Handler
	Booking  *booking.Handler
	Catalog  *catalog.Handler
	Push     *push.Handler
	Realtime *realtime.Handler
	Health   *health.Handler
}

type RouterConfig struct {
	// RateLimit applies per client IP to the public intake endpoint only.
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	MaxBodyBytes     int64
	MetricsEnabled   bool
	MetricsPath      string
	Metrics          *metrics.Metrics
	Gatherer         prometheus.Gatherer
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	config   RouterConfig
}

func NewRouter(authMiddleware *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.CORS(config.CORSConfig),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}

	return &Router{
		engine:   engine,
		auth:     authMiddleware,
		handlers: handlers,
		config:   config,
	}
}

func (r *Router) Setup() {
	r.handlers.Health.RegisterRoutes(r.engine)
	if r.config.MetricsEnabled {
		r.engine.GET(r.config.MetricsPath, handler.MetricsHandler(r.config.Gatherer))
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	if r.config.MaxBodyBytes > 0 {
		api.Use(middleware.SizeLimit(r.config.MaxBodyBytes))
	}

	// Public routes
	r.handlers.Catalog.RegisterRoutes(api)
	r.handlers.Auth.RegisterRoutes(api)

	intake := api.Group("")
	if r.config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		intake.Use(limiter.RateLimit())
	}

	// Operator routes
	admin := api.Group("/admin")
	admin.Use(r.auth.Authenticate())

	r.handlers.Booking.RegisterRoutes(intake, admin)
	r.handlers.Push.RegisterRoutes(admin)
	r.handlers.Realtime.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
