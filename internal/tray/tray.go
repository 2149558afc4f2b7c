// Package tray provides the menu bar icon for the fingerspell trainer. The
// tray is a feedback sink showing the current target and hold progress, and
// offers restart, enable toggle, lesson switching and quit.
package tray

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/getlantern/systray"
)

// Controller is the part of the application the tray drives.
type Controller interface {
	Restart()
	SelectLesson(name string) error
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// Config holds the tray collaborators.
type Config struct {
	Controller Controller
	// Lessons are offered in the lesson submenu.
	Lessons []string
	// OnQuit is called after Quit is clicked, before the tray exits.
	OnQuit func()
	Logger *slog.Logger
}

// status is the latest feedback shown by the tray.
type status struct {
	target    string
	index     int
	progress  float64
	last      string
	completed bool
}

// Tray represents the system tray application.
type Tray struct {
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	status  status
	changed chan struct{}

	// Menu items stored for later updates
	menuTarget  *systray.MenuItem
	menuLast    *systray.MenuItem
	menuToggle  *systray.MenuItem
	menuRestart *systray.MenuItem
	menuQuit    *systray.MenuItem
	menuLessons map[*systray.MenuItem]string
}

// New creates a new Tray.
func New(config Config) *Tray {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Tray{
		config:  config,
		logger:  config.Logger.With("component", "tray"),
		changed: make(chan struct{}, 1),
	}
}

// Run starts the system tray application.
// This function blocks until Quit is clicked or systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("BSL")
	systray.SetTooltip("Fingerspell Trainer")

	t.menuTarget = systray.AddMenuItem("Target: none", "Gesture to sign next")
	t.menuTarget.Disable()
	t.menuLast = systray.AddMenuItem("Last: none", "Last confirmed gesture")
	t.menuLast.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled()), "Toggle gesture recognition")
	t.menuRestart = systray.AddMenuItem("Restart Lesson", "Start the lesson again from the first gesture")

	t.menuLessons = make(map[*systray.MenuItem]string)
	if len(t.config.Lessons) > 0 {
		parent := systray.AddMenuItem("Lessons", "Switch lesson")
		for _, name := range t.config.Lessons {
			t.menuLessons[parent.AddSubMenuItem(name, "Switch to "+name)] = name
		}
	}
	systray.AddSeparator()

	t.menuQuit = systray.AddMenuItem("Quit", "Quit Fingerspell")

	for item, name := range t.menuLessons {
		go t.watchLesson(item, name)
	}
	go t.loop()
}

// loop handles menu clicks and applies feedback updates.
func (t *Tray) loop() {
	for {
		select {
		case <-t.changed:
			t.render()
		case <-t.menuToggle.ClickedCh:
			t.handleToggle()
		case <-t.menuRestart.ClickedCh:
			t.handleRestart()
		case <-t.menuQuit.ClickedCh:
			t.handleQuit()
			return
		}
	}
}

func (t *Tray) watchLesson(item *systray.MenuItem, name string) {
	for range item.ClickedCh {
		t.handleSelect(name)
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	t.logger.Debug("tray exited")
}

func (t *Tray) enabled() bool {
	if t.config.Controller == nil {
		return true
	}
	return t.config.Controller.IsEnabled()
}

// handleToggle flips the enabled state of the controller.
func (t *Tray) handleToggle() bool {
	if t.config.Controller == nil {
		return false
	}
	enabled := !t.config.Controller.IsEnabled()
	t.config.Controller.SetEnabled(enabled)
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	t.logger.Info("recognition toggled", "enabled", enabled)
	return enabled
}

func (t *Tray) handleRestart() {
	if t.config.Controller != nil {
		t.config.Controller.Restart()
	}
}

func (t *Tray) handleSelect(name string) {
	if t.config.Controller == nil {
		return
	}
	if err := t.config.Controller.SelectLesson(name); err != nil {
		t.logger.Warn("failed to switch lesson", "lesson", name, "error", err)
	}
}

func (t *Tray) handleQuit() {
	if t.config.OnQuit != nil {
		t.config.OnQuit()
	}
	systray.Quit()
}

func (t *Tray) OnProgress(fraction float64) {
	t.update(func(s *status) { s.progress = fraction })
}

func (t *Tray) OnGestureConfirmed(name string) {
	t.update(func(s *status) { s.last = name })
}

func (t *Tray) OnSessionCompleted() {
	t.update(func(s *status) { s.completed = true })
}

func (t *Tray) OnTargetChanged(name string, index int) {
	t.update(func(s *status) {
		s.target, s.index, s.progress, s.completed = name, index, 0, false
	})
}

// update records the change and wakes the menu loop without blocking.
func (t *Tray) update(fn func(*status)) {
	t.mu.Lock()
	fn(&t.status)
	t.mu.Unlock()

	select {
	case t.changed <- struct{}{}:
	default:
	}
}

// Status returns the tray's target and last lines.
func (t *Tray) Status() (target, last string) {
	t.mu.Lock()
	s := t.status
	t.mu.Unlock()
	return targetTitle(s), lastTitle(s)
}

func (t *Tray) render() {
	target, last := t.Status()
	if t.menuTarget != nil {
		t.menuTarget.SetTitle(target)
	}
	if t.menuLast != nil {
		t.menuLast.SetTitle(last)
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

const progressCells = 5

func targetTitle(s status) string {
	switch {
	case s.completed:
		return "Lesson complete"
	case s.target == "":
		return "Target: none"
	}
	filled := int(s.progress * progressCells)
	if filled > progressCells {
		filled = progressCells
	}
	bar := strings.Repeat("■", filled) + strings.Repeat("□", progressCells-filled)
	return fmt.Sprintf("Target %d: %s %s", s.index+1, s.target, bar)
}

func lastTitle(s status) string {
	if s.last == "" {
		return "Last: none"
	}
	return "Last: " + s.last
}
