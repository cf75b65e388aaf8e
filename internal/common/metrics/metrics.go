// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_page_fetches_total",
			Help: "Outbound page fetches by outcome (ok, empty, status, error)",
		},
		[]string{"outcome"},
	)

	OutboundInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scout_outbound_fetches_in_flight",
			Help: "Outbound fetches currently holding a limiter slot",
		},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_llm_requests_total",
			Help: "Language model requests by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scout_llm_request_duration_seconds",
			Help:    "Language model request latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"purpose"},
	)

	NewsFeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_news_feed_fetches_total",
			Help: "News feed fetches by outcome (ok, cached, error)",
		},
		[]string{"outcome"},
	)

	FitScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_fit_score",
			Help:    "Distribution of computed fit scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)
