package domain

import "time"

// Recorder receives dispatch-layer observability events. The domain package
// depends only on this interface, never on a concrete metrics backend —
// pkg/metrics supplies the Prometheus-backed implementation the cmd/
// entrypoint wires in.
type Recorder interface {
	BatchDispatched(model string, size int, duration time.Duration, outcome string)
	JobAdmitted(model string)
	JobRejected(model string, reason string)
	// PoolSnapshot reports a point-in-time view of one model's pool,
	// called after a scale-up and after each reconciliation. Cleanup and
	// individual queue operations do not report a snapshot.
	PoolSnapshot(model string, running, permanent, queueDepth int)
}

// NopRecorder discards every event. It is the default when no Recorder is
// supplied, so tests and embedders never need to stub one out.
type NopRecorder struct{}

func (NopRecorder) BatchDispatched(string, int, time.Duration, string) {}
func (NopRecorder) JobAdmitted(string)                                 {}
func (NopRecorder) JobRejected(string, string)                         {}
func (NopRecorder) PoolSnapshot(string, int, int, int)                 {}
