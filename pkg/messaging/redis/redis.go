package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-booking/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-booking/pkg/messaging"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
)

type RedisBroker struct {
	client  *redis.Client
	cb      *circuitbreaker.CircuitBreaker
	logger  *zerolog.Logger
	metrics *metrics.Metrics
	buffer  int
}

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
	// SubscribeBuffer is the per-subscription channel size.
	SubscribeBuffer int
}

func NewRedisBroker(config Config, logger *zerolog.Logger, m *metrics.Metrics) (*RedisBroker, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pooling
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.RetryBackoff > 0 {
		opts.MinRetryBackoff = config.RetryBackoff
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if config.SubscribeBuffer <= 0 {
		config.SubscribeBuffer = 100
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &RedisBroker{
		client: client,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-broker",
			MaxFailures: 5,
			Timeout:     5 * time.Second,
		}),
		logger:  logger,
		metrics: m,
		buffer:  config.SubscribeBuffer,
	}, nil
}

func (b *RedisBroker) observe(op string, start time.Time, err error) {
	if b.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	b.metrics.RedisOperations.WithLabelValues(op, status).Inc()
	b.metrics.RedisLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := messaging.Encode(message)
	if err != nil {
		return err
	}

	start := time.Now()
	err = b.cb.Execute(func() error {
		return b.client.Publish(ctx, channel, payload).Err()
	})
	b.observe("publish", start, err)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning,
// so a message published right after Subscribe returns is not missed.
func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	start := time.Now()
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		b.observe("subscribe", start, err)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	b.observe("subscribe", start, nil)

	msgChan := make(chan []byte, b.buffer)

	go func() {
		defer func() {
			pubsub.Close()
			close(msgChan)
		}()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case msgChan <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return msgChan, nil
}

// Ping checks the connection, for readiness probes.
func (b *RedisBroker) Ping(ctx context.Context) error {
	start := time.Now()
	err := b.client.Ping(ctx).Err()
	b.observe("ping", start, err)
	return err
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
