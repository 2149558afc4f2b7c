// Package metrics exposes Prometheus collectors for frame ingestion and
// lesson sequencing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/fingerspell/internal/hand"
)

const namespace = "fingerspell"

var (
	// framesTotal counts parsed payloads by outcome.
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of payloads parsed, by result",
		},
		[]string{"result"}, // result: ok, empty, malformed
	)

	// staleFramesTotal counts cycles where the latest payload was too old.
	staleFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_frames_total",
			Help:      "Total number of evaluation cycles that treated the latest payload as stale",
		},
	)

	// handsVisible is the number of hands in the current frame.
	handsVisible = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hands_visible",
			Help:      "Number of hands in the current frame",
		},
	)

	// cycleDuration is a histogram of evaluation cycle duration.
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one parse, classify and sequence cycle in seconds",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
		},
	)

	// confirmationsTotal counts confirmed gestures.
	confirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_confirmed_total",
			Help:      "Total number of confirmed gestures",
		},
		[]string{"gesture"},
	)

	// sessionsCompleted counts completed sessions.
	sessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of completed lesson sessions",
		},
	)

	// holdProgress is the current hold-confirmation progress.
	holdProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hold_progress_ratio",
			Help:      "Hold progress towards confirming the current target, 0 to 1",
		},
	)

	// targetIndex is the position of the current target gesture.
	targetIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_index",
			Help:      "Index of the current target gesture in the lesson",
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		framesTotal,
		staleFramesTotal,
		handsVisible,
		cycleDuration,
		confirmationsTotal,
		sessionsCompleted,
		holdProgress,
		targetIndex,
	}
)

// NewRegistry returns a registry with all fingerspell collectors plus the Go
// runtime and process collectors. Extra collectors are registered too.
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordFrame records a parsed payload and the number of hands it held.
func RecordFrame(result hand.ParseResult, hands int) {
	framesTotal.WithLabelValues(result.String()).Inc()
	handsVisible.Set(float64(hands))
}

// RecordStale records a cycle that discarded a stale payload.
func RecordStale() {
	staleFramesTotal.Inc()
	handsVisible.Set(0)
}

// RecordCycle records the duration of one evaluation cycle.
func RecordCycle(seconds float64) {
	cycleDuration.Observe(seconds)
}
