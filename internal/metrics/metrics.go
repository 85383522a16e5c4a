// Package metrics exposes the sync engine's Prometheus series.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Push results.
const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultError    = "error"
	ResultParked   = "parked"
	ResultInvalid  = "invalid"
)

var (
	SyncEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_sync_enqueued_total",
			Help: "Changes written to the local sync queue",
		},
		[]string{"table", "action"},
	)

	SyncPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_sync_push_total",
			Help: "Queue entries pushed to the remote store, by outcome",
		},
		[]string{"table", "result"},
	)

	SyncPushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbor_sync_push_duration_seconds",
			Help:    "Remote write latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"table"},
	)

	SyncDrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbor_sync_drain_duration_seconds",
			Help:    "Duration of one queue drain cycle in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	SyncQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arbor_sync_queue_depth",
			Help: "Entries in the local sync queue",
		},
		[]string{"state"}, // state: pending, parked
	)

	RemoteSlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_remote_slow_queries_total",
			Help: "Remote queries slower than the configured threshold",
		},
		[]string{"command"},
	)
)

func RecordEnqueue(table, action string) {
	SyncEnqueued.WithLabelValues(table, action).Inc()
}

func RecordPush(table, result string, duration time.Duration) {
	SyncPushes.WithLabelValues(table, result).Inc()
	SyncPushDuration.WithLabelValues(table).Observe(duration.Seconds())
}

func RecordDrain(duration time.Duration) {
	SyncDrainDuration.Observe(duration.Seconds())
}

// SetQueueDepth publishes the queue size split into pending and parked.
func SetQueueDepth(total, parked int) {
	SyncQueueDepth.WithLabelValues("pending").Set(float64(total - parked))
	SyncQueueDepth.WithLabelValues("parked").Set(float64(parked))
}

func IncrementSlowQuery(command string) {
	RemoteSlowQueries.WithLabelValues(command).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
