package metrics

// Sink mirrors sequencer feedback into the collectors.
type Sink struct{}

func (Sink) OnProgress(fraction float64) {
	holdProgress.Set(fraction)
}

func (Sink) OnGestureConfirmed(name string) {
	confirmationsTotal.WithLabelValues(name).Inc()
}

func (Sink) OnSessionCompleted() {
	sessionsCompleted.Inc()
	holdProgress.Set(0)
}

func (Sink) OnTargetChanged(_ string, index int) {
	targetIndex.Set(float64(index))
}
