package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-booking/internal/repository"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
)

// OutboxCleanupWorker purges published outbox events and puts events stuck
// in PROCESSING back in the queue.
type OutboxCleanupWorker struct {
	repo       repository.OutboxRepository
	retention  time.Duration
	staleAfter time.Duration
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retention, staleAfter time.Duration, logger zerolog.Logger, m *metrics.Metrics) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:       repo,
		retention:  retention,
		staleAfter: staleAfter,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

// Schedule registers the cleanup on c with the given cron spec.
func (w *OutboxCleanupWorker) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if err := w.Run(ctx); err != nil {
			w.logger.Error().Err(err).Msg("outbox cleanup failed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return id, nil
}

func (w *OutboxCleanupWorker) Run(ctx context.Context) error {
	now := w.now()

	if w.staleAfter > 0 {
		requeued, err := w.repo.RequeueStale(ctx, now.Add(-w.staleAfter))
		if err != nil {
			return fmt.Errorf("failed to requeue stale outbox events: %w", err)
		}
		if requeued > 0 {
			w.logger.Warn().Int64("count", requeued).Msg("requeued stale outbox events")
		}
	}

	cutoff := now.Add(-w.retention)
	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup outbox events: %w", err)
	}
	if w.metrics != nil {
		w.metrics.OutboxEventsPurged.Add(float64(rows))
	}

	w.logger.Info().Int64("count", rows).Time("cutoff", cutoff).Msg("cleaned up processed outbox events")
	return nil
}
