package observability

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediacheck_analyses_total",
			Help: "Total number of analysis requests by file type and outcome",
		},
		[]string{"file_type", "outcome"},
	)

	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediacheck_verdicts_total",
			Help: "Total number of completed analyses by file type and verdict status",
		},
		[]string{"file_type", "status"},
	)

	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediacheck_analysis_duration_seconds",
			Help:    "End-to-end analysis latency including upload and polling",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"file_type", "outcome"},
	)

	stagedBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediacheck_staged_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		},
		[]string{"file_type"},
	)
)

// PrometheusHooks records pipeline events into the default registry.
type PrometheusHooks struct{}

// NewPrometheusHooks returns hooks backed by the package's collectors.
func NewPrometheusHooks() *PrometheusHooks {
	return &PrometheusHooks{}
}

func (*PrometheusHooks) OnStaged(_ context.Context, ev StagedEvent) {
	stagedBytes.WithLabelValues(string(ev.FileType)).Observe(float64(ev.Size))
}

func (*PrometheusHooks) OnFinished(_ context.Context, ev FinishedEvent) {
	fileType := string(ev.FileType)
	if fileType == "" {
		fileType = "unknown"
	}
	outcome := ev.Outcome()

	analysesTotal.WithLabelValues(fileType, outcome).Inc()
	analysisDuration.WithLabelValues(fileType, outcome).Observe(ev.Duration.Seconds())
	if ev.Err == nil {
		status := strings.ToLower(ev.Status)
		if status == "" {
			status = "unknown"
		}
		verdictsTotal.WithLabelValues(fileType, status).Inc()
	}
}
