// Package metrics registers the Prometheus collectors the workload manager
// exposes, following the same promauto top-level-vars style the rest of
// the fleet's services use.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmittedTotal counts every call to WorkloadManager.Submit.
	JobsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wlm_jobs_submitted_total",
		Help: "Total number of jobs offered to WorkloadManager.Submit.",
	}, []string{"model"})

	// JobsAdmittedTotal counts submissions that were actually queued.
	JobsAdmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wlm_jobs_admitted_total",
		Help: "Total number of jobs successfully placed on a model's queue.",
	}, []string{"model"})

	// JobsRejectedTotal counts submissions rejected, labeled by reason.
	JobsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wlm_jobs_rejected_total",
		Help: "Total number of jobs rejected by Submit, by reason.",
	}, []string{"model", "reason"})

	// BatchesProcessedTotal counts runtime invocations, labeled by outcome.
	BatchesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wlm_batches_processed_total",
		Help: "Total number of batches handed to a ModelRuntime, by outcome.",
	}, []string{"model", "outcome"})

	// BatchSize observes how many jobs made it into each dispatched batch.
	BatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wlm_batch_size",
		Help:    "Number of jobs in each batch handed to a ModelRuntime.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	}, []string{"model"})

	// BatchDuration observes Predict's wall-clock latency per batch.
	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wlm_batch_duration_seconds",
		Help:    "Time spent inside ModelRuntime.Predict per batch.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	// RunningWorkers gauges the live (non-terminal) worker count per model.
	RunningWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wlm_running_workers",
		Help: "Current number of non-terminal workers per model.",
	}, []string{"model"})

	// PermanentWorkers gauges the permanent worker count per model.
	PermanentWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wlm_permanent_workers",
		Help: "Current number of permanent workers per model.",
	}, []string{"model"})

	// QueueDepth gauges the current JobQueue length per model.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wlm_queue_depth",
		Help: "Current number of jobs waiting in a model's queue.",
	}, []string{"model"})
)
