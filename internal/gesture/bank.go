package gesture

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ayusman/fingerspell/internal/hand"
)

// Bank evaluates the gestures of one plan. It is read-only after setup and
// safe for concurrent use.
type Bank struct {
	plan   Plan
	params Params
	index  map[string]int
}

// NewBank validates plan and builds a bank for it. A non-positive touch
// radius falls back to DefaultTouch.
func NewBank(plan Plan, params Params) (*Bank, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if params.Touch <= 0 {
		params.Touch = DefaultTouch
	}

	b := &Bank{
		plan:   clonePlan(plan),
		params: params,
		index:  make(map[string]int, len(plan.Gestures)),
	}
	for i, g := range plan.Gestures {
		b.index[g.Name] = i
	}
	return b, nil
}

// WithDistance replaces the distance of every within and apart term of the
// named gesture. It must be called before the bank is shared.
func (b *Bank) WithDistance(name string, d float64) error {
	i, ok := b.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGesture, name)
	}
	if d <= 0 {
		return fmt.Errorf("%w: distance for %s must be positive", ErrInvalidRule, name)
	}
	b.plan.Gestures[i].Rule = b.plan.Gestures[i].Rule.withDistance(d)
	return nil
}

// Plan returns the plan the bank was built from.
func (b *Bank) Plan() Plan {
	return b.plan
}

// Params returns the evaluation parameters.
func (b *Bank) Params() Params {
	return b.params
}

// Len returns the number of gestures.
func (b *Bank) Len() int {
	return len(b.plan.Gestures)
}

// Gesture returns the gesture at index i.
func (b *Bank) Gesture(i int) (Gesture, bool) {
	if i < 0 || i >= len(b.plan.Gestures) {
		return Gesture{}, false
	}
	return b.plan.Gestures[i], true
}

// IndexOf returns the position of the named gesture, or -1.
func (b *Bank) IndexOf(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	return -1
}

// Classify reports whether frame matches gesture i. Out of range indices never match.
func (b *Bank) Classify(i int, f hand.Frame) bool {
	if i < 0 || i >= len(b.plan.Gestures) {
		return false
	}
	return b.plan.Gestures[i].Rule.Eval(f, b.params)
}

// HasTrigger reports whether the plan waits for a trigger gesture.
func (b *Bank) HasTrigger() bool {
	return b.plan.Trigger != nil
}

// Triggered reports whether frame matches the start trigger. Plans without a
// trigger are always triggered.
func (b *Bank) Triggered(f hand.Frame) bool {
	if b.plan.Trigger == nil {
		return true
	}
	return b.plan.Trigger.Eval(f, b.params)
}

// Duplicates returns groups of gestures whose rules are identical and so can
// never be told apart.
func (b *Bank) Duplicates() [][]string {
	groups := make(map[string][]string)
	var order []string
	for _, g := range b.plan.Gestures {
		key, err := json.Marshal(g.Rule)
		if err != nil {
			continue
		}
		k := string(key)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], g.Name)
	}

	var dups [][]string
	for _, k := range order {
		if len(groups[k]) > 1 {
			dups = append(dups, groups[k])
		}
	}
	sort.SliceStable(dups, func(i, j int) bool { return dups[i][0] < dups[j][0] })
	return dups
}

func clonePlan(p Plan) Plan {
	out := p
	out.Gestures = append([]Gesture(nil), p.Gestures...)
	if p.Timing.Overrides != nil {
		out.Timing.Overrides = make(map[string]time.Duration, len(p.Timing.Overrides))
		for k, v := range p.Timing.Overrides {
			out.Timing.Overrides[k] = v
		}
	}
	return out
}
