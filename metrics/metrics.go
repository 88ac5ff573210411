// Package metrics holds the Prometheus collectors of the bot. They are registered on the
// default registry and served by the HTTP API on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions is the number of open batch sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batchshare_active_sessions",
			Help: "Number of open batch upload sessions",
		},
	)

	// SessionEvents counts dispatcher outcomes by command and result.
	SessionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchshare_session_events_total",
			Help: "Batch session commands handled, by command and result",
		},
		[]string{"event", "result"},
	)

	FilesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchshare_files_added_total",
			Help: "Files accepted into batch sessions",
		},
	)

	BytesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchshare_bytes_added_total",
			Help: "Total size of files accepted into batch sessions",
		},
	)

	BatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchshare_batches_created_total",
			Help: "Batches persisted",
		},
	)

	// Deliveries counts files copied to users from a batch link.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchshare_deliveries_total",
			Help: "Files delivered from batches, by result",
		},
		[]string{"result"},
	)
)

// Observe records one dispatcher outcome.
func Observe(event string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SessionEvents.WithLabelValues(event, result).Inc()
}
