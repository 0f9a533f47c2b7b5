// Package memory is an in-process Broker. It backs the API server when no
// Redis URL is configured and is used by tests.
package memory

import (
	"context"
	"sync"

	"github.com/jwalitptl/clinic-booking/pkg/messaging"
)

type subscriber struct {
	ch chan []byte
}

type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
	buffer int
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 100
	}
	return &Broker{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Publish fans the message out to current subscribers. A subscriber whose
// buffer is full misses the message.
func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := messaging.Encode(message)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return messaging.ErrBrokerClosed
	}

	for s := range b.subs[channel] {
		select {
		case s.ch <- payload:
		default:
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, messaging.ErrBrokerClosed
	}

	s := &subscriber{ch: make(chan []byte, b.buffer)}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscriber]struct{})
	}
	b.subs[channel][s] = struct{}{}

	go func() {
		<-ctx.Done()
		b.remove(channel, s)
	}()

	return s.ch, nil
}

func (b *Broker) remove(channel string, s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[channel][s]; !ok {
		return
	}
	delete(b.subs[channel], s)
	if len(b.subs[channel]) == 0 {
		delete(b.subs, channel)
	}
	close(s.ch)
}

// Subscribers reports how many subscriptions channel currently has.
func (b *Broker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subs := range b.subs {
		for s := range subs {
			close(s.ch)
		}
		delete(b.subs, channel)
	}
	return nil
}
