// Package realtime delivers row change events of a collection to
// subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/pkg/messaging"
)

// Handler receives one change event. ctx is cancelled when the
// subscription is released.
type Handler func(ctx context.Context, event model.ChangeEvent)

type Subscription interface {
	// Unsubscribe releases the subscription. Calling it more than once is
	// harmless.
	Unsubscribe()
	// Done is closed once no more events will be delivered.
	Done() <-chan struct{}
}

// Feed is a source of change events.
type Feed interface {
	Subscribe(ctx context.Context, collection string, kind model.ChangeKind, handler Handler) (Subscription, error)
}

// BrokerFeed reads change events published by the outbox processor.
type BrokerFeed struct {
	broker  messaging.Broker
	onError func(error)
}

// NewBrokerFeed returns a feed over broker. onError, if not nil, receives
// payloads that could not be decoded.
func NewBrokerFeed(broker messaging.Broker, onError func(error)) *BrokerFeed {
	return &BrokerFeed{broker: broker, onError: onError}
}

func (f *BrokerFeed) Subscribe(ctx context.Context, collection string, kind model.ChangeKind, handler Handler) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	channel := model.ChangeChannel(collection, kind)

	done, err := messaging.Consume(subCtx, f.broker, channel, func(payload []byte) error {
		var event model.ChangeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to decode change event on %s: %w", channel, err)
		}
		if subCtx.Err() != nil {
			return nil
		}
		handler(subCtx, event)
		return nil
	}, f.onError)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	return &subscription{cancel: cancel, done: done}, nil
}

type subscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   <-chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}
