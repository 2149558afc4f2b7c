// Package app wires the frame receiver, parser, classifier bank and lesson
// sequencer into the fingerspell evaluation loop.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/hand"
	"github.com/ayusman/fingerspell/internal/lesson"
	"github.com/ayusman/fingerspell/internal/metrics"
	"github.com/ayusman/fingerspell/internal/receiver"
	"github.com/ayusman/fingerspell/internal/store"
)

// Loop timing defaults.
const (
	DefaultTickInterval = time.Second / 60
	DefaultFrameTTL     = 500 * time.Millisecond
)

// PayloadSource provides the most recent raw payload, or nil when none has
// arrived yet. *receiver.Receiver implements it.
type PayloadSource interface {
	Latest() *receiver.Payload
}

// Config holds configuration options for the application.
type Config struct {
	// Store is optional. Without it only the built-in lessons are available
	// and selections are not persisted.
	Store        *store.Store
	Source       PayloadSource
	Projector    hand.Projector
	Lesson       config.LessonConfig
	TickInterval time.Duration
	FrameTTL     time.Duration
	// Sinks receive sequencer feedback in addition to the log and metrics sinks.
	Sinks  []lesson.Sink
	Logger *slog.Logger
}

// App runs the evaluation loop and serializes every access to the sequencer.
type App struct {
	config Config
	logger *slog.Logger

	mu        sync.RWMutex
	sinks     lesson.Sinks
	sequencer *lesson.Sequencer
	enabled   bool
	frame     hand.Frame
	stopCh    chan struct{}
	done      chan struct{}

	// owned by the loop goroutine
	lastTick time.Time
	lastSeq  uint64
	staleSeq uint64
}

// New creates a new App and loads its lesson. The lesson is the last one
// selected through the store when present, otherwise config.Lesson.Name.
func New(config Config) (*App, error) {
	if config.Source == nil {
		return nil, errors.New("app: payload source is required")
	}
	if config.Projector == (hand.Projector{}) {
		config.Projector = hand.DefaultProjector
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.FrameTTL <= 0 {
		config.FrameTTL = DefaultFrameTTL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	a := &App{
		config:  config,
		logger:  config.Logger.With("component", "app"),
		sinks:   lesson.Sinks{lesson.LogSink{Logger: config.Logger}, metrics.Sink{}},
		enabled: true,
	}
	for i, s := range config.Sinks {
		if s == nil {
			a.logger.Warn("ignoring nil feedback sink", "position", i)
			continue
		}
		a.sinks = append(a.sinks, s)
	}

	name := config.Lesson.Name
	if name == "" {
		name = gesture.PlanAlphabet
	}
	if config.Store != nil {
		settings := config.Store.Settings()
		if saved, err := settings.GetOr(store.SettingLesson, ""); err != nil {
			a.logger.Warn("failed to read saved lesson", "error", err)
		} else if saved != "" {
			name = saved
		}
		if v, err := settings.GetOr(store.SettingEnabled, "true"); err == nil {
			if enabled, err := strconv.ParseBool(v); err == nil {
				a.enabled = enabled
			}
		}
	}

	seq, err := a.buildSequencer(name)
	if err != nil && name != config.Lesson.Name && config.Lesson.Name != "" {
		a.logger.Warn("saved lesson unavailable, using configured lesson", "lesson", name, "error", err)
		seq, err = a.buildSequencer(config.Lesson.Name)
	}
	if err != nil {
		return nil, err
	}
	a.sequencer = seq

	return a, nil
}

// loadPlan resolves a lesson by name from the store, falling back to the
// built-in plans.
func (a *App) loadPlan(name string) (gesture.Plan, error) {
	if a.config.Store != nil {
		plan, err := a.config.Store.Lessons().Plan(name)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return gesture.Plan{}, fmt.Errorf("load lesson %s: %w", name, err)
		}
	}
	return gesture.Lookup(name)
}

// buildSequencer applies the configured timing, touch radius and distances to
// the named plan and returns a fresh sequencer for it.
func (a *App) buildSequencer(name string) (*lesson.Sequencer, error) {
	plan, err := a.loadPlan(name)
	if err != nil {
		return nil, err
	}

	bank, err := gesture.NewBank(plan, a.config.Lesson.Params())
	if err != nil {
		return nil, fmt.Errorf("lesson %s: %w", name, err)
	}
	for g, d := range a.config.Lesson.Distances {
		if err := bank.WithDistance(g, d); err != nil {
			a.logger.Warn("ignoring distance override", "lesson", name, "gesture", g, "error", err)
		}
	}
	for _, group := range bank.Duplicates() {
		a.logger.Warn("gestures share an identical rule", "lesson", name, "gestures", group)
	}

	timing := a.config.Lesson.Timing(plan.Timing)
	a.logger.Info("lesson loaded",
		"lesson", plan.Name,
		"gestures", bank.Len(),
		"hold", timing.Hold,
		"feedback", timing.Feedback,
		"trigger", bank.HasTrigger(),
	)
	return lesson.NewSequencer(bank, timing, &a.sinks, a.config.Logger), nil
}

// AddSink registers another feedback sink. Nil sinks are ignored. A sink
// that observes targets is told the current target when a gesture is already
// active.
func (a *App) AddSink(s lesson.Sink) {
	if s == nil {
		a.logger.Warn("ignoring nil feedback sink")
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)

	obs, ok := s.(lesson.TargetObserver)
	if !ok {
		return
	}
	snap := a.sequencer.Snapshot()
	if snap.Phase == lesson.PhaseActive || snap.Phase == lesson.PhaseFeedback {
		obs.OnTargetChanged(snap.Target, snap.Index)
	}
}

// SetEnabled enables or disables gesture evaluation. While disabled the
// sequencer is not stepped and hold progress does not advance.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingEnabled, strconv.FormatBool(enabled)); err != nil {
			a.logger.Warn("failed to save enabled setting", "error", err)
		}
	}
}

// IsEnabled returns whether gesture evaluation is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Restart begins a new session of the current lesson at its first gesture.
func (a *App) Restart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sequencer.Restart()
}

// SelectLesson switches to the named lesson and starts a new session. The
// selection is persisted when a store is configured.
func (a *App) SelectLesson(name string) error {
	a.mu.Lock()
	seq, err := a.buildSequencer(name)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.sequencer = seq
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingLesson, name); err != nil {
			a.logger.Warn("failed to save lesson selection", "error", err)
		}
	}
	return nil
}

// Confirm delivers an externally produced confirmation. It is ignored unless
// name is the active target.
func (a *App) Confirm(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sequencer.Confirm(name)
}

// Snapshot returns the current sequencer state.
func (a *App) Snapshot() lesson.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sequencer.Snapshot()
}

// Plan returns the plan of the current lesson.
func (a *App) Plan() gesture.Plan {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sequencer.Bank().Plan()
}

// Frame returns the most recently evaluated frame.
func (a *App) Frame() hand.Frame {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frame
}

// Start begins the evaluation loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.logger.Info("evaluation loop started", "tick", a.config.TickInterval, "frame_ttl", a.config.FrameTTL)
	return nil
}

// Stop halts the evaluation loop and waits for it to exit.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	a.logger.Info("evaluation loop stopped")
}

// Running reports whether the evaluation loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}
