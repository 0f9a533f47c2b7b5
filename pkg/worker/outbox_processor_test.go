package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/pkg/logger"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
)

type statusUpdate struct {
	id     uuid.UUID
	status model.OutboxStatus
	errMsg *string
}

type fakeOutboxRepo struct {
	mu      sync.Mutex
	pending []*model.OutboxEvent
	updates []statusUpdate
}

func (r *fakeOutboxRepo) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.pending) {
		limit = len(r.pending)
	}
	claimed := r.pending[:limit]
	r.pending = r.pending[limit:]
	return claimed, nil
}

func (r *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, statusUpdate{id: id, status: status, errMsg: errorMessage})
	return nil
}

func (r *fakeOutboxRepo) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type published struct {
	channel string
	message interface{}
}

type fakeBroker struct {
	failures int
	calls    int
	sent     []published
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.calls++
	if b.failures > 0 {
		b.failures--
		return errors.New("redis unavailable")
	}
	b.sent = append(b.sent, published{channel: channel, message: message})
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *fakeBroker) Close() error { return nil }

func newEvent(retries int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		Channel:    "bookings:INSERT",
		Payload:    json.RawMessage(`{"collection":"bookings","event":"INSERT"}`),
		Status:     model.OutboxStatusProcessing,
		RetryCount: retries,
		CreatedAt:  time.Now(),
	}
}

func newProcessor(repo *fakeOutboxRepo, broker *fakeBroker) *OutboxProcessor {
	p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		MaxRetries:    5,
	}, logger.NewLogger(&logger.Config{Level: logger.ErrorLevel}), metrics.NewTestMetrics())
	p.sleep = func(time.Duration) {}
	return p
}

func TestProcessBatchPublishesAndMarksProcessed(t *testing.T) {
	evt := newEvent(0)
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{evt}}
	broker := &fakeBroker{}

	n, err := newProcessor(repo, broker).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, broker.sent, 1)
	assert.Equal(t, "bookings:INSERT", broker.sent[0].channel)
	assert.Equal(t, evt.Payload, broker.sent[0].message)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OutboxStatusProcessed, repo.updates[0].status)
	assert.Nil(t, repo.updates[0].errMsg)
}

func TestProcessBatchRetriesPublish(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{newEvent(0)}}
	broker := &fakeBroker{failures: 2}

	n, err := newProcessor(repo, broker).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, broker.calls)
	assert.Equal(t, model.OutboxStatusProcessed, repo.updates[0].status)
}

func TestProcessBatchRequeuesFailedEvent(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{newEvent(0)}}
	broker := &fakeBroker{failures: 3}

	n, err := newProcessor(repo, broker).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OutboxStatusPending, repo.updates[0].status)
	require.NotNil(t, repo.updates[0].errMsg)
	assert.Contains(t, *repo.updates[0].errMsg, "redis unavailable")
}

func TestProcessBatchGivesUpAfterMaxRetries(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{newEvent(4)}}
	broker := &fakeBroker{failures: 3}

	_, err := newProcessor(repo, broker).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusFailed, repo.updates[0].status)
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(&fakeOutboxRepo{}, &fakeBroker{}, OutboxProcessorConfig{}, nil, nil)
	})
}
