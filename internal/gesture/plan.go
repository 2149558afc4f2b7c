package gesture

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownPlan is returned when a plan name is not registered.
var ErrUnknownPlan = errors.New("unknown lesson plan")

// ErrUnknownGesture is returned when a gesture name is not part of a plan.
var ErrUnknownGesture = errors.New("unknown gesture")

// Gesture is one named target of a lesson plan.
type Gesture struct {
	Name string `json:"name"`
	Rule Rule   `json:"rule"`
}

// Timing holds hold-confirmation and feedback durations for a plan.
type Timing struct {
	Hold      time.Duration            `json:"hold"`
	Feedback  time.Duration            `json:"feedback"`
	Overrides map[string]time.Duration `json:"overrides,omitempty"`
}

// Threshold returns the hold threshold for the named gesture. An override of
// zero is honored and confirms on the first matching frame.
func (t Timing) Threshold(name string) time.Duration {
	if d, ok := t.Overrides[name]; ok {
		return d
	}
	return t.Hold
}

// Plan is an ordered list of gestures plus an optional trigger that must be
// shown before the first gesture becomes active.
type Plan struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Trigger     *Rule     `json:"trigger,omitempty"`
	Gestures    []Gesture `json:"gestures"`
	Timing      Timing    `json:"timing"`
}

// Validate checks the plan structure and every rule in it.
func (p Plan) Validate() error {
	if p.Name == "" {
		return errors.New("plan name is required")
	}
	if len(p.Gestures) == 0 {
		return fmt.Errorf("plan %s: no gestures", p.Name)
	}
	if p.Timing.Hold < 0 || p.Timing.Feedback < 0 {
		return fmt.Errorf("plan %s: negative timing", p.Name)
	}
	if p.Trigger != nil {
		if err := p.Trigger.Validate(); err != nil {
			return fmt.Errorf("plan %s trigger: %w", p.Name, err)
		}
	}
	seen := make(map[string]bool, len(p.Gestures))
	for _, g := range p.Gestures {
		if g.Name == "" {
			return fmt.Errorf("plan %s: gesture name is required", p.Name)
		}
		if seen[g.Name] {
			return fmt.Errorf("plan %s: duplicate gesture %s", p.Name, g.Name)
		}
		seen[g.Name] = true
		if err := g.Rule.Validate(); err != nil {
			return fmt.Errorf("plan %s gesture %s: %w", p.Name, g.Name, err)
		}
	}
	for name, d := range p.Timing.Overrides {
		if !seen[name] {
			return fmt.Errorf("plan %s: override for %w %s", p.Name, ErrUnknownGesture, name)
		}
		if d < 0 {
			return fmt.Errorf("plan %s: negative override for %s", p.Name, name)
		}
	}
	return nil
}

// Names returns the gesture names in plan order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Gestures))
	for i, g := range p.Gestures {
		names[i] = g.Name
	}
	return names
}

// Plans returns every built-in plan.
func Plans() []Plan {
	return []Plan{Alphabet(), Practice()}
}

// Lookup returns the built-in plan with the given name.
func Lookup(name string) (Plan, error) {
	for _, p := range Plans() {
		if p.Name == name {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %s", ErrUnknownPlan, name)
}
