// Package metrics exposes Prometheus instrumentation for the download
// manager. All collectors register with the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmittedTotal counts accepted submissions.
	JobsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "multidl_jobs_submitted_total",
			Help: "Total number of download jobs submitted",
		},
	)

	// JobsFinishedTotal counts jobs reaching a terminal status.
	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multidl_jobs_finished_total",
			Help: "Total number of download jobs finished, by terminal status",
		},
		[]string{"status"},
	)

	// JobsRunning is the number of jobs currently executing.
	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "multidl_jobs_running",
			Help: "Number of download jobs currently running",
		},
	)

	// QueueDepth is the number of jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "multidl_queue_depth",
			Help: "Number of download jobs waiting in the queue",
		},
	)

	// Workers is the target worker count of the pool.
	Workers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "multidl_workers",
			Help: "Target number of concurrent download workers",
		},
	)

	// JobDurationSeconds observes how long jobs ran, by terminal status.
	JobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "multidl_job_duration_seconds",
			Help:    "Download job execution time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 14), // 0.5s to ~68min
		},
		[]string{"status"},
	)
)
