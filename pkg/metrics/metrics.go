package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking metrics
	BookingsCreated      prometheus.Counter
	BookingStatusChanges *prometheus.CounterVec
	RealtimeSubscribers  prometheus.Gauge

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxEventsPurged      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisLatency    *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequests        *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// registers with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total number of bookings accepted from the intake form",
		}),
		BookingStatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_changes_total",
			Help:      "Total number of operator status changes by new status",
		}, []string{"status"}),
		RealtimeSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Current number of open realtime streams",
		}),

		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_processed_total",
			Help:      "Total number of successfully published outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Total number of outbox events that could not be published",
		}),
		OutboxEventsPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_purged_total",
			Help:      "Total number of processed outbox events deleted by cleanup",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing one outbox batch",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "retry_attempts_total",
			Help:      "Total number of publish retries by channel",
		}, []string{"channel"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),

		RedisOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
		RedisLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redis_operation_duration_seconds",
			Help:      "Duration of Redis operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"operation"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
		}, []string{"method", "path", "status"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

// NewTestMetrics registers everything with a private registry.
func NewTestMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}
