// Package metrics exposes the connector's Prometheus instrumentation. It is
// wired the way xg2g's internal/openwebif/client_metrics.go wires its
// request counters: module-level vectors registered via promauto, observed
// from call sites, never read back by core logic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connector_state_run_duration_seconds",
		Help:    "Duration of a single workflow state execution.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 10),
	}, []string{"state", "outcome"})

	adapterCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_platform_adapter_calls_total",
		Help: "Outcome of platform adapter operations.",
	}, []string{"platform", "operation", "outcome"})

	uploadChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_upload_chunks_total",
		Help: "Chunks sent during a resumable upload, by platform and outcome.",
	}, []string{"platform", "outcome"})
)

// ObserveState records the duration and outcome of one workflow state run.
func ObserveState(state string, outcome string, d time.Duration) {
	runDuration.WithLabelValues(state, outcome).Observe(d.Seconds())
}

// ObserveAdapterCall records the outcome of one platform adapter call.
func ObserveAdapterCall(platform, operation, outcome string) {
	adapterCallsTotal.WithLabelValues(platform, operation, outcome).Inc()
}

// ObserveUploadChunk records one chunk transfer attempt's outcome.
func ObserveUploadChunk(platform, outcome string) {
	uploadChunksTotal.WithLabelValues(platform, outcome).Inc()
}
