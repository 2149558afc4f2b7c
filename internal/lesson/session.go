// Package lesson drives a fingerspelling lesson: it debounces classifications
// with a hold timer, steps through the plan's gestures and reports progress to
// feedback sinks.
package lesson

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is where a session is in its lesson.
type Phase int

const (
	// PhaseIdle waits for the start trigger.
	PhaseIdle Phase = iota
	// PhaseActive evaluates the current target gesture.
	PhaseActive
	// PhaseFeedback is the quiet window after a confirmation.
	PhaseFeedback
	// PhaseCompleted is terminal until restart.
	PhaseCompleted
)

var phaseNames = map[Phase]string{
	PhaseIdle:      "idle",
	PhaseActive:    "active",
	PhaseFeedback:  "feedback",
	PhaseCompleted: "completed",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for k, v := range phaseNames {
		if v == string(text) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Session is the state of the single running lesson.
type Session struct {
	ID        string    `json:"id"`
	Phase     Phase     `json:"phase"`
	Index     int       `json:"index"`
	Candidate Candidate `json:"candidate"`
	StartedAt time.Time `json:"started_at"`
}

// NewSession creates a session with a fresh ID. Sessions whose plan has a
// start trigger begin idle; the rest begin on the first gesture.
func NewSession(waitForTrigger bool) Session {
	var s Session
	s.Reset(waitForTrigger)
	return s
}

// Reset replaces the session with a new one.
func (s *Session) Reset(waitForTrigger bool) {
	phase := PhaseActive
	if waitForTrigger {
		phase = PhaseIdle
	}
	*s = Session{
		ID:        uuid.NewString(),
		Phase:     phase,
		StartedAt: time.Now(),
	}
}
