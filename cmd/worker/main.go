package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
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

	"github.com/jwalitptl/clinic-booking/config"
	"github.com/jwalitptl/clinic-booking/internal/handler"
	"github.com/jwalitptl/clinic-booking/internal/handler/health"
	"github.com/jwalitptl/clinic-booking/internal/repository/postgres"
	cleanup "github.com/jwalitptl/clinic-booking/internal/worker"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
	"github.com/jwalitptl/clinic-booking/pkg/worker"
)

func setupHealthCheck(port int, checks map[string]health.Check, gatherer prometheus.Gatherer) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks).RegisterRoutes(engine)
	engine.GET("/metrics", handler.MetricsHandler(gatherer))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health check server failed")
		}
	}()
	return srv
}

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.yml")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Redis.URL == "" {
		log.Fatal().Msg("redis.url is required by the standalone worker")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	})
	appLogger.SetGlobal()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, registry)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		cfg.Outbox.ToWorkerConfig(),
		appLogger.WithFields(map[string]interface{}{"component": "outbox_processor"}),
		m,
	)

	scheduler := cron.New()
	w := cleanup.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, cfg.Outbox.StaleAfter, log.Logger, m)
	if _, err := w.Schedule(ctx, scheduler, cfg.Outbox.CleanupSchedule); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule outbox cleanup")
	}
	scheduler.Start()

	srv := setupHealthCheck(cfg.Outbox.HealthPort, map[string]health.Check{
		"database": db.PingContext,
		"redis":    broker.Ping,
	}, registry)

	processor.Start(ctx)

	log.Info().Msg("shutting down...")
	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
}
