package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSize       *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Notification fan-out metrics
	NotificationsCreatedTotal *prometheus.CounterVec
	FanoutDuration            *prometheus.HistogramVec
	FanoutRecipients          *prometheus.HistogramVec
	NotificationsReadTotal    *prometheus.CounterVec
	NotificationsDeletedTotal *prometheus.CounterVec

	// Delivery metrics
	DeliveriesTotal         *prometheus.CounterVec
	DeliveryDuration        *prometheus.HistogramVec
	DeliveryQueueDepth      prometheus.Gauge
	DeliveryDroppedTotal    *prometheus.CounterVec
	PushSubscriptionsPruned prometheus.Counter

	// Live inbox connections
	LiveConnections prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			// HTTP metrics
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_size_bytes",
					Help:    "HTTP request body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			// Cache metrics
			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			NotificationsCreatedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_created_total",
					Help: "Total number of notification rows created",
				},
				[]string{"subject_kind", "verb"},
			),
			FanoutDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "notification_fanout_duration_seconds",
					Help:    "Time to resolve, deduplicate and persist a fan-out",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
				},
				[]string{"subject_kind", "event"},
			),
			FanoutRecipients: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "notification_fanout_recipients",
					Help:    "Number of recipients per fan-out after deduplication",
					Buckets: prometheus.ExponentialBuckets(1, 2, 10),
				},
				[]string{"subject_kind", "event"},
			),
			NotificationsReadTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_read_total",
					Help: "Total number of notifications flipped to read",
				},
				[]string{"mode"},
			),
			NotificationsDeletedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_deleted_total",
					Help: "Total number of notifications deleted",
				},
				[]string{"reason"},
			),

			DeliveriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notification_deliveries_total",
					Help: "Total number of delivery attempts by adapter and outcome",
				},
				[]string{"adapter", "status"},
			),
			DeliveryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "notification_delivery_duration_seconds",
					Help:    "Time spent in a delivery adapter",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"adapter"},
			),
			DeliveryQueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "notification_delivery_queue_depth",
					Help: "Number of delivery jobs waiting in the queue",
				},
			),
			DeliveryDroppedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notification_delivery_dropped_total",
					Help: "Delivery jobs that could not be queued",
				},
				[]string{"reason"},
			),
			PushSubscriptionsPruned: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "push_subscriptions_pruned_total",
					Help: "Push subscriptions deleted because the endpoint is gone",
				},
			),
			LiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "live_inbox_connections",
					Help: "Open websocket connections to live inboxes",
				},
			),

			// Error metrics
			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}

// RecordFanout records one completed fan-out
func RecordFanout(kind, event string, recipients int, duration time.Duration) {
	m := Get()
	m.FanoutDuration.WithLabelValues(kind, event).Observe(duration.Seconds())
	m.FanoutRecipients.WithLabelValues(kind, event).Observe(float64(recipients))
}

// RecordNotificationCreated counts a created notification row
func RecordNotificationCreated(kind, verb string) {
	Get().NotificationsCreatedTotal.WithLabelValues(kind, verb).Inc()
}

// RecordRead counts notifications flipped to read
func RecordRead(mode string, count int) {
	if count > 0 {
		Get().NotificationsReadTotal.WithLabelValues(mode).Add(float64(count))
	}
}

// RecordDeleted counts deleted notifications
func RecordDeleted(reason string, count int64) {
	if count > 0 {
		Get().NotificationsDeletedTotal.WithLabelValues(reason).Add(float64(count))
	}
}

// RecordDelivery records one adapter attempt
func RecordDelivery(adapter, status string, duration time.Duration) {
	m := Get()
	m.DeliveriesTotal.WithLabelValues(adapter, status).Inc()
	m.DeliveryDuration.WithLabelValues(adapter).Observe(duration.Seconds())
}

// RecordDeliveryDropped counts a job that never reached the queue
func RecordDeliveryDropped(reason string) {
	Get().DeliveryDroppedTotal.WithLabelValues(reason).Inc()
}

// SetQueueDepth reports the current queue length
func SetQueueDepth(depth int) {
	Get().DeliveryQueueDepth.Set(float64(depth))
}

// RecordSubscriptionPruned counts a deleted push subscription
func RecordSubscriptionPruned() {
	Get().PushSubscriptionsPruned.Inc()
}

// SetLiveConnections reports the open live inbox connections
func SetLiveConnections(n int) {
	Get().LiveConnections.Set(float64(n))
}
