package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

// insertChangeEventTx records a change event for collection in the same
// transaction as the change itself. oldRow is nil for inserts.
func insertChangeEventTx(ctx context.Context, tx *sqlx.Tx, collection string, kind model.ChangeKind, oldRow, newRow interface{}) error {
	now := time.Now().UTC()
	event := model.ChangeEvent{
		Collection:      collection,
		Event:           kind,
		CommitTimestamp: now,
	}
	var err error
	if newRow != nil {
		if event.New, err = json.Marshal(newRow); err != nil {
			return fmt.Errorf("failed to marshal %s row: %w", collection, err)
		}
	}
	if oldRow != nil {
		if event.Old, err = json.Marshal(oldRow); err != nil {
			return fmt.Errorf("failed to marshal previous %s row: %w", collection, err)
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	query := `
		INSERT INTO outbox_events (
			id, channel, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)
	`
	_, err = tx.ExecContext(ctx, query,
		uuid.New(),
		model.ChangeChannel(collection, kind),
		payload,
		model.OutboxStatusPending,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, channel, payload, status, error_message, retry_count,
			created_at, processed_at, updated_at
	`
	var events []*model.OutboxEvent
	err := r.db.SelectContext(ctx, &events, query,
		model.OutboxStatusProcessing, model.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	// RETURNING order is unspecified
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_count = CASE WHEN $1 = 'PENDING' THEN retry_count + 1 ELSE retry_count END,
			processed_at = CASE WHEN $1 = 'PROCESSED' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update outbox event status: %w", err)
	}
	return nil
}

func (r *outboxRepository) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE outbox_events
		SET status = $1, updated_at = NOW()
		WHERE status = $2
		AND updated_at < $3
	`
	result, err := r.db.ExecContext(ctx, query, model.OutboxStatusPending, model.OutboxStatusProcessing, before)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale events: %w", err)
	}
	return result.RowsAffected()
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = $1
		AND processed_at < $2
	`
	result, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
