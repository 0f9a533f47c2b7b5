package messaging

import (
	"context"
	"errors"
)

var ErrBrokerClosed = errors.New("broker closed")

// Broker defines the interface for message brokers
type Broker interface {
	// Publish json encodes message and sends it on channel. A message that
	// is already []byte or json.RawMessage is sent as is.
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe delivers raw payloads until ctx is done. The returned channel
	// is closed when the subscription ends.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
