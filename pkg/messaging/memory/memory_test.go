package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking/pkg/messaging"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBroker(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "bookings:INSERT")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "bookings:UPDATE")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "bookings:INSERT", map[string]string{"id": "1"}))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"id":"1"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	assert.Len(t, other, 0)
}

func TestCancelRemovesSubscriber(t *testing.T) {
	b := NewBroker(1)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("c"))

	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("c"))
}

func TestFullBufferDropsMessage(t *testing.T) {
	b := NewBroker(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "c", []byte("a")))
	require.NoError(t, b.Publish(ctx, "c", []byte("b")))

	assert.Equal(t, []byte("a"), <-ch)
	assert.Len(t, ch, 0)
}

func TestClose(t *testing.T) {
	b := NewBroker(1)
	ch, err := b.Subscribe(context.Background(), "c")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, open := <-ch
	assert.False(t, open)

	assert.ErrorIs(t, b.Publish(context.Background(), "c", "x"), messaging.ErrBrokerClosed)
	_, err = b.Subscribe(context.Background(), "c")
	assert.ErrorIs(t, err, messaging.ErrBrokerClosed)
	assert.NoError(t, b.Close())
}
