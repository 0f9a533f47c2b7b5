package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/messaging"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
	"github.com/jwalitptl/clinic-booking/pkg/repository"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxRetries is how many polls an event may fail before it is marked
	// FAILED for good.
	MaxRetries int
}

// OutboxProcessor publishes outbox events to the broker. Delivery is at
// least once: an event whose status update fails after a successful publish
// is published again.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	sleep   func(time.Duration)
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay < 0 {
		panic("RetryDelay must not be negative")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		sleep:   time.Sleep,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch claims and publishes one batch and reports how many events
// were published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()

	published := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"channel", event.Channel)
			continue
		}
		published++
	}

	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := p.retry(event.Channel, func() error {
		return p.broker.Publish(ctx, event.Channel, event.Payload)
	})

	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		errStr := err.Error()
		status := model.OutboxStatusPending
		if event.RetryCount+1 >= p.config.MaxRetries && p.config.MaxRetries > 0 {
			status = model.OutboxStatusFailed
		}
		if updateErr := p.repo.UpdateStatus(ctx, event.ID, status, &errStr); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status", "event_id", event.ID.String())
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

// retry runs fn up to RetryAttempts times.
func (p *OutboxProcessor) retry(channel string, fn func() error) error {
	var err error
	for i := 0; i < p.config.RetryAttempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < p.config.RetryAttempts-1 {
			p.metrics.OutboxRetries.WithLabelValues(channel).Inc()
			p.sleep(p.config.RetryDelay)
		}
	}
	return err
}
