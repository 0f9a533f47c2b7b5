package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-booking/config"
	authHandler "github.com/jwalitptl/clinic-booking/internal/handler/auth"
	bookingHandler "github.com/jwalitptl/clinic-booking/internal/handler/booking"
	catalogHandler "github.com/jwalitptl/clinic-booking/internal/handler/catalog"
	"github.com/jwalitptl/clinic-booking/internal/handler/health"
	pushHandler "github.com/jwalitptl/clinic-booking/internal/handler/push"
	realtimeHandler "github.com/jwalitptl/clinic-booking/internal/handler/realtime"
	"github.com/jwalitptl/clinic-booking/internal/middleware"
	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/realtime"
	"github.com/jwalitptl/clinic-booking/internal/repository/postgres"
	"github.com/jwalitptl/clinic-booking/internal/router"
	authService "github.com/jwalitptl/clinic-booking/internal/service/auth"
	bookingService "github.com/jwalitptl/clinic-booking/internal/service/booking"
	catalogService "github.com/jwalitptl/clinic-booking/internal/service/catalog"
	pushService "github.com/jwalitptl/clinic-booking/internal/service/push"
	cleanup "github.com/jwalitptl/clinic-booking/internal/worker"
	"github.com/jwalitptl/clinic-booking/pkg/auth"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/messaging"
	"github.com/jwalitptl/clinic-booking/pkg/messaging/memory"
	"github.com/jwalitptl/clinic-booking/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
	"github.com/jwalitptl/clinic-booking/pkg/security"
	"github.com/jwalitptl/clinic-booking/pkg/validator"
	"github.com/jwalitptl/clinic-booking/pkg/worker"
)

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.yml")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	})
	appLogger.SetGlobal()
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, registry)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	// Initialize broker. Without Redis, events only reach streams of this
	// process, so the outbox must run embedded.
	var broker messaging.Broker
	checks := map[string]health.Check{"database": db.PingContext}
	if cfg.Redis.URL != "" {
		redisBroker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger, m)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		checks["redis"] = redisBroker.Ping
		broker = redisBroker
	} else {
		log.Warn().Msg("redis.url not set, using in-process broker")
		broker = memory.NewBroker(64)
		cfg.Outbox.Embedded = true
	}
	defer broker.Close()

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	bookingRepo := postgres.NewBookingRepository(base)
	serviceRepo := postgres.NewServiceRepository(base)
	settingRepo := postgres.NewSettingRepository(base)
	operatorRepo := postgres.NewOperatorRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	// Initialize services
	loc := cfg.Clinic.Location()
	v := validator.New(loc)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(operatorRepo, jwtSvc, security.NewBcryptHasher(security.DefaultCost), appLogger)
	bookingSvc := bookingService.NewService(bookingRepo, serviceRepo, v,
		bookingService.NewWhatsAppLinker(cfg.Clinic.Region, cfg.Clinic.Name), m, appLogger)
	catalogSvc := catalogService.NewService(serviceRepo, cfg.Clinic.ServicesCacheTTL)
	pushSvc := pushService.NewService(settingRepo, v, appLogger)

	if err := bootstrapOperator(ctx, authSvc, cfg.Bootstrap); err != nil {
		log.Fatal().Err(err).Msg("failed to create bootstrap operator")
	}

	feed := realtime.NewBrokerFeed(broker, func(err error) {
		log.Error().Err(err).Msg("realtime feed error")
	})
	today := func() model.Date { return model.DateOf(time.Now().In(loc)) }

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		router.Handlers{
			Auth:     authHandler.NewHandler(authSvc),
			Booking:  bookingHandler.NewHandler(bookingSvc, today),
			Catalog:  catalogHandler.NewHandler(catalogSvc),
			Push:     pushHandler.NewHandler(pushSvc),
			Realtime: realtimeHandler.NewHandler(feed, m),
			Health:   health.NewHandler(checks),
		},
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig: middleware.CORSConfig{
				AllowOrigins: cfg.Security.AllowedOrigins,
				AllowMethods: cfg.Security.AllowedMethods,
				AllowHeaders: cfg.Security.AllowedHeaders,
			},
			MaxBodyBytes:   64 << 10,
			MetricsEnabled: cfg.Monitoring.PrometheusEnabled,
			MetricsPath:    cfg.Monitoring.MetricsPath,
			Metrics:        m,
			Gatherer:       registry,
		},
	)
	r.Setup()

	if cfg.Outbox.Embedded {
		processor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), appLogger, m)
		go processor.Start(ctx)

		scheduler := cron.New()
		w := cleanup.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, cfg.Outbox.StaleAfter, log.Logger, m)
		if _, err := w.Schedule(ctx, scheduler, cfg.Outbox.CleanupSchedule); err != nil {
			log.Fatal().Err(err).Msg("failed to schedule outbox cleanup")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// WriteTimeout stays 0 by default so realtime streams are not cut off.
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func bootstrapOperator(ctx context.Context, svc *authService.Service, cfg config.BootstrapConfig) error {
	if cfg.OperatorEmail == "" || cfg.OperatorPassword == "" {
		return nil
	}
	created, err := svc.EnsureOperator(ctx, cfg.OperatorEmail, cfg.OperatorName, cfg.OperatorPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("email", cfg.OperatorEmail).Msg("created bootstrap operator")
	}
	return nil
}
