package metrics

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_messages_received_total",
			Help: "Bus messages delivered by the broker",
		},
	)

	MessagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_measurements_stored_total",
			Help: "Measurements persisted from bus messages",
		},
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_dropped_total",
			Help: "Bus messages discarded without a measurement",
		},
		[]string{"reason"}, // malformed, missing_fields, unknown_sensor, store_failed, queue_full, panic
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_queue_depth",
			Help: "Messages waiting for a worker",
		},
	)

	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_connection_state",
			Help: "Bus connection state: 0 disconnected, 1 connecting, 2 connected",
		},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Backups
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_operations_total",
			Help: "Backup exports and imports by outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// RecordRequest observes one finished HTTP request.
func RecordRequest(method, route string, status int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RegisterDB exports connection pool statistics for db. Registering the same
// name twice is not an error.
func RegisterDB(db *sql.DB, name string) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, name))
	var dup prometheus.AlreadyRegisteredError
	if errors.As(err, &dup) {
		return nil
	}
	return err
}
