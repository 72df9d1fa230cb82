// Package metrics exposes Prometheus collectors for the index selection
// service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexselect_documents_total",
			Help: "Documents evaluated, labeled by terminal outcome.",
		},
		[]string{"outcome"},
	)

	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexselect_rejections_total",
			Help: "Rejected documents, labeled by reason.",
		},
		[]string{"reason"},
	)

	pagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexselect_pages_total",
			Help: "Committed scan pages.",
		},
	)

	pageDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexselect_page_duration_seconds",
			Help:    "Histogram of acquire-evaluate-commit latency per page.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	shardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexselect_shards_total",
			Help: "Shards finished, labeled by status.",
		},
		[]string{"status"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexselect_active_workers",
			Help: "Workers currently processing a shard.",
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDocument counts one terminal document outcome.
func ObserveDocument(outcome string) {
	documentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRejection counts one rejection reason.
func ObserveRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// ObservePage records a committed page and its latency.
func ObservePage(rows int, duration time.Duration) {
	if rows <= 0 {
		return
	}
	pagesTotal.Inc()
	pageDurationSeconds.Observe(duration.Seconds())
}

// ObserveShard counts a finished shard by status (processed/skipped/failed).
func ObserveShard(status string) {
	shardsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
