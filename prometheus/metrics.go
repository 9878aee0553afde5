package prometheus

import (
	"time"

	"pharmacy-connector/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Resource operation metrics (inventory, sales, orders, webhook events, pharmacies)
	ResourceOperationsCounter prometheus.CounterVec

	// Inventory level metrics
	InventoryQuantityGauge prometheus.GaugeVec

	// Webhook event intake metrics
	WebhookEventsReceivedCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of API key authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful API key authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of failed API key authentications",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Resource operation metrics
	ResourceOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_resource_operations_total",
			Help: "Total number of resource operations",
		},
		[]string{"resource", "operation"},
	)

	// Inventory level metrics
	InventoryQuantityGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_inventory_quantity",
			Help: "Last reported quantity per inventory item",
		},
		[]string{"pharmacy_id", "sku"},
	)

	// Webhook event intake metrics
	WebhookEventsReceivedCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_webhook_events_received_total",
			Help: "Total number of webhook events received",
		},
		[]string{"event_type"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthAttempt increments the counter for authentication attempts
func RecordAuthAttempt() {
	AuthAttemptsCounter.Inc()
}

// RecordAuthSuccess increments the counter for successful authentications
func RecordAuthSuccess() {
	AuthSuccessCounter.Inc()
}

// RecordAuthError increments the counter for failed authentications
func RecordAuthError() {
	AuthErrorsCounter.Inc()
}

// RecordResourceOperation increments the counter for resource operations
func RecordResourceOperation(resource string, operation string) {
	ResourceOperationsCounter.WithLabelValues(resource, operation).Inc()
}

// UpdateInventoryQuantity updates the gauge for an inventory item's quantity
func UpdateInventoryQuantity(pharmacyID string, sku string, quantity float64) {
	InventoryQuantityGauge.WithLabelValues(pharmacyID, sku).Set(quantity)
}

// RecordWebhookEventReceived increments the counter for received webhook events
func RecordWebhookEventReceived(eventType string) {
	WebhookEventsReceivedCounter.WithLabelValues(eventType).Inc()
}
