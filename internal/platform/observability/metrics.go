package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "articleflow_submissions_received_total",
		Help: "Intake submissions accepted by the gateway",
	}, []string{"type"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "articleflow_jobs_processed_total",
		Help: "Jobs finished by the consumer, by outcome",
	}, []string{"outcome"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "articleflow_job_duration_seconds",
		Help:    "Wall-clock duration of one pipeline run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "articleflow_queue_depth",
		Help: "Jobs in the queue, by status",
	}, []string{"status"})

	StaleJobsRecycled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "articleflow_stale_jobs_recycled_total",
		Help: "Jobs swept back from expired leases",
	})
)

// Job outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeLost      = "lost"
)
