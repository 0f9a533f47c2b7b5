package messaging

import (
	"context"
)

// Consume subscribes to channel and calls handler for every payload in its
// own goroutine. Handler errors go to onError and do not stop consumption.
// The returned done channel is closed once the subscription has ended.
func Consume(ctx context.Context, broker Broker, channel string, handler func([]byte) error, onError func(error)) (<-chan struct{}, error) {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgChan {
			if err := handler(msg); err != nil && onError != nil {
				onError(err)
			}
		}
	}()

	return done, nil
}
