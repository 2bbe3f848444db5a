// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of submissions processed by outcome",
		},
		[]string{"outcome"},
	)

	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_gate_rejections_total",
			Help: "Total number of submissions rejected per pipeline gate",
		},
		[]string{"gate"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intake_upstream_request_duration_seconds",
			Help: "Duration of external service calls in seconds",
		},
		[]string{"service"},
	)

	RelevanceScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intake_relevance_score",
			Help:    "Distribution of image-text relevance scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	StorageFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_image_storage_failures_total",
			Help: "Total number of swallowed image storage failures",
		},
	)
)
