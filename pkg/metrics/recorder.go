package metrics

import "time"

// Recorder implements internal/wlm/domain.Recorder on top of the package's
// Prometheus collectors. It is defined here, not in the domain package, so
// the dispatch core stays free of a direct Prometheus dependency.
type Recorder struct{}

// NewRecorder returns a Prometheus-backed domain.Recorder.
func NewRecorder() Recorder {
	return Recorder{}
}

func (Recorder) BatchDispatched(model string, size int, duration time.Duration, outcome string) {
	BatchesProcessedTotal.WithLabelValues(model, outcome).Inc()
	BatchSize.WithLabelValues(model).Observe(float64(size))
	BatchDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func (Recorder) JobAdmitted(model string) {
	JobsSubmittedTotal.WithLabelValues(model).Inc()
	JobsAdmittedTotal.WithLabelValues(model).Inc()
}

func (Recorder) JobRejected(model string, reason string) {
	JobsSubmittedTotal.WithLabelValues(model).Inc()
	JobsRejectedTotal.WithLabelValues(model, reason).Inc()
}

func (Recorder) PoolSnapshot(model string, running, permanent, queueDepth int) {
	RunningWorkers.WithLabelValues(model).Set(float64(running))
	PermanentWorkers.WithLabelValues(model).Set(float64(permanent))
	QueueDepth.WithLabelValues(model).Set(float64(queueDepth))
}
