package lesson

import "log/slog"

// Sink receives feedback from the sequencer. Calls happen on the evaluation
// loop and must not block.
type Sink interface {
	OnProgress(fraction float64)
	OnGestureConfirmed(name string)
	OnSessionCompleted()
}

// TargetObserver is an optional Sink extension notified whenever a new target
// gesture becomes active.
type TargetObserver interface {
	OnTargetChanged(name string, index int)
}

// NopSink discards all feedback.
type NopSink struct{}

// OnProgress, OnGestureConfirmed, OnSessionCompleted and OnTargetChanged do
// nothing.
func (NopSink) OnProgress(float64)          {}
func (NopSink) OnGestureConfirmed(string)   {}
func (NopSink) OnSessionCompleted()         {}
func (NopSink) OnTargetChanged(string, int) {}

// Sinks fans feedback out to several sinks in order. Nil entries are skipped.
type Sinks []Sink

// OnProgress forwards fraction to every sink.
func (s Sinks) OnProgress(fraction float64) {
	for _, sink := range s {
		if sink != nil {
			sink.OnProgress(fraction)
		}
	}
}

// OnGestureConfirmed forwards the confirmation to every sink.
func (s Sinks) OnGestureConfirmed(name string) {
	for _, sink := range s {
		if sink != nil {
			sink.OnGestureConfirmed(name)
		}
	}
}

// OnSessionCompleted forwards completion to every sink.
func (s Sinks) OnSessionCompleted() {
	for _, sink := range s {
		if sink != nil {
			sink.OnSessionCompleted()
		}
	}
}

// OnTargetChanged forwards the new target to the sinks that observe targets.
func (s Sinks) OnTargetChanged(name string, index int) {
	for _, sink := range s {
		if obs, ok := sink.(TargetObserver); ok {
			obs.OnTargetChanged(name, index)
		}
	}
}

// LogSink writes feedback to a structured logger. Progress is logged at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// OnProgress logs fraction at debug level.
func (l LogSink) OnProgress(fraction float64) {
	l.logger().Debug("hold progress", "fraction", fraction)
}

// OnGestureConfirmed logs the confirmed gesture.
func (l LogSink) OnGestureConfirmed(name string) {
	l.logger().Info("gesture confirmed", "gesture", name)
}

// OnSessionCompleted logs the end of the session.
func (l LogSink) OnSessionCompleted() {
	l.logger().Info("session completed")
}

// OnTargetChanged logs the next gesture to perform.
func (l LogSink) OnTargetChanged(name string, index int) {
	l.logger().Info("next gesture", "gesture", name, "index", index)
}
