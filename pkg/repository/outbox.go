package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

// OutboxRepository is the part of the outbox store the processor and the
// cleanup job need.
type OutboxRepository interface {
	// ClaimPending moves up to limit pending events to PROCESSING and
	// returns them. Rows claimed by another worker are skipped.
	ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	// UpdateStatus sets the final status of a claimed event. PENDING puts it
	// back in the queue and counts a retry.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
	// RequeueStale returns events stuck in PROCESSING since before to PENDING.
	RequeueStale(ctx context.Context, before time.Time) (int64, error)
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
