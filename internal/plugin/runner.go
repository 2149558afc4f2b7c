package plugin

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/ayusman/fingerspell/internal/store"
)

const defaultQueueSize = 32

// CueSource finds the cues bound to an event. *store.CueRepository
// implements it.
type CueSource interface {
	Match(event store.CueEvent, gesture string) ([]*store.Cue, error)
}

// PluginSource resolves plugins by name. *Manager implements it.
type PluginSource interface {
	Get(name string) (*Plugin, error)
}

// RunnerConfig holds the collaborators of a Runner.
type RunnerConfig struct {
	Cues     CueSource
	Plugins  PluginSource
	Executor *Executor
	// Lesson reports the current lesson name for requests. Optional.
	Lesson    func() string
	QueueSize int
	Logger    *slog.Logger
}

type job struct {
	event   store.CueEvent
	gesture string
}

// Runner is a feedback sink that executes the cue plugins bound to
// sequencer events. Sink calls only enqueue; plugins run on the goroutine
// started by Run. Events are dropped when the queue is full.
type Runner struct {
	config  RunnerConfig
	logger  *slog.Logger
	jobs    chan job
	dropped atomic.Uint64
	runs    atomic.Uint64
}

// NewRunner creates a new Runner.
func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Cues == nil || config.Plugins == nil {
		return nil, errors.New("plugin runner: cues and plugins are required")
	}
	if config.Executor == nil {
		config.Executor = NewExecutor(DefaultTimeout)
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Runner{
		config: config,
		logger: config.Logger.With("component", "cues"),
		jobs:   make(chan job, config.QueueSize),
	}, nil
}

func (r *Runner) OnProgress(float64) {}

func (r *Runner) OnGestureConfirmed(name string) {
	r.enqueue(job{event: store.CueConfirmed, gesture: name})
}

func (r *Runner) OnSessionCompleted() {
	r.enqueue(job{event: store.CueCompleted})
}

func (r *Runner) OnTargetChanged(name string, _ int) {
	r.enqueue(job{event: store.CueTarget, gesture: name})
}

func (r *Runner) enqueue(j job) {
	select {
	case r.jobs <- j:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (r *Runner) Dropped() uint64 {
	return r.dropped.Load()
}

// Runs returns the number of plugin executions that reported success.
func (r *Runner) Runs() uint64 {
	return r.runs.Load()
}

// Run executes queued cues until ctx is cancelled. It always returns
// ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-r.jobs:
			r.dispatch(ctx, j)
		}
	}
}

// dispatch runs every enabled cue matching j. Failures are logged and do
// not stop the remaining cues.
func (r *Runner) dispatch(ctx context.Context, j job) {
	cues, err := r.config.Cues.Match(j.event, j.gesture)
	if err != nil {
		r.logger.Warn("failed to match cues", "event", j.event, "gesture", j.gesture, "error", err)
		return
	}
	if len(cues) == 0 {
		return
	}

	var lessonName string
	if r.config.Lesson != nil {
		lessonName = r.config.Lesson()
	}

	for _, cue := range cues {
		if !cue.Enabled {
			continue
		}
		log := r.logger.With("cue", cue.ID, "plugin", cue.PluginName, "action", cue.ActionName)

		plug, err := r.config.Plugins.Get(cue.PluginName)
		if err != nil {
			log.Warn("cue plugin unavailable", "error", err)
			continue
		}
		if !plug.Supports(cue.ActionName) {
			log.Warn("cue action not supported by plugin")
			continue
		}

		resp, err := r.config.Executor.Execute(ctx, plug, &Request{
			Action:  cue.ActionName,
			Event:   string(j.event),
			Gesture: j.gesture,
			Lesson:  lessonName,
			Config:  cue.Config,
		})
		if err != nil {
			log.Warn("cue plugin failed", "error", err)
			continue
		}
		if !resp.Success {
			log.Warn("cue plugin reported failure", "error", resp.Error)
			continue
		}
		r.runs.Add(1)
		log.Debug("cue executed", "event", j.event, "gesture", j.gesture)
	}
}
