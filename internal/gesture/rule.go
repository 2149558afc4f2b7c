// Package gesture provides the declarative gesture table and the classifier
// bank that evaluates it against keypoint frames.
package gesture

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ayusman/fingerspell/internal/hand"
)

// DefaultTouch is the distance in scene units under which two keypoints touch.
const DefaultTouch = 0.25

// Op identifies a rule term.
type Op string

const (
	// OpTouch holds when A and B are closer than the touch radius (or Dist if set).
	OpTouch Op = "touch"
	// OpWithin holds when A and B are closer than Dist.
	OpWithin Op = "within"
	// OpApart holds when A and B are farther than Dist.
	OpApart Op = "apart"
	// OpAbove holds when A is higher (greater Y) than every keypoint in Points.
	OpAbove Op = "above"
	// OpAll holds when every sub-rule holds.
	OpAll Op = "all"
	// OpAny holds when at least one sub-rule holds.
	OpAny Op = "any"
)

// ErrInvalidRule is wrapped by every Validate failure.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is one node of a gesture predicate. Keypoints are global ids: 0..20
// for the right hand, 21..41 for the left hand.
type Rule struct {
	Op     Op      `json:"op"`
	A      int     `json:"a,omitempty"`
	B      int     `json:"b,omitempty"`
	Points []int   `json:"points,omitempty"`
	Dist   float64 `json:"dist,omitempty"`
	Rules  []Rule  `json:"rules,omitempty"`
}

// Params are evaluation parameters shared by every rule in a bank.
type Params struct {
	Touch float64 `json:"touch"`
}

// DefaultParams returns the default evaluation parameters.
func DefaultParams() Params {
	return Params{Touch: DefaultTouch}
}

// Touch builds a rule that holds when a and b touch.
func Touch(a, b int) Rule {
	return Rule{Op: OpTouch, A: a, B: b}
}

// TouchAny builds a rule that holds when a touches any of others.
func TouchAny(a int, others ...int) Rule {
	rules := make([]Rule, len(others))
	for i, b := range others {
		rules[i] = Touch(a, b)
	}
	return Any(rules...)
}

// Within builds a rule that holds when a and b are closer than dist.
func Within(a, b int, dist float64) Rule {
	return Rule{Op: OpWithin, A: a, B: b, Dist: dist}
}

// Apart builds a rule that holds when a and b are farther than dist.
func Apart(a, b int, dist float64) Rule {
	return Rule{Op: OpApart, A: a, B: b, Dist: dist}
}

// Above builds a rule that holds when a is higher than every point in others.
func Above(a int, others ...int) Rule {
	return Rule{Op: OpAbove, A: a, Points: others}
}

// All builds a conjunction.
func All(rules ...Rule) Rule {
	return Rule{Op: OpAll, Rules: rules}
}

// Any builds a disjunction.
func Any(rules ...Rule) Rule {
	return Rule{Op: OpAny, Rules: rules}
}

// Validate checks that the rule tree is well formed.
func (r Rule) Validate() error {
	switch r.Op {
	case OpTouch, OpWithin, OpApart:
		if err := validID(r.A); err != nil {
			return err
		}
		if err := validID(r.B); err != nil {
			return err
		}
		if r.Dist < 0 {
			return fmt.Errorf("%w: %s distance %v is negative", ErrInvalidRule, r.Op, r.Dist)
		}
		if r.Op != OpTouch && r.Dist == 0 {
			return fmt.Errorf("%w: %s requires a distance", ErrInvalidRule, r.Op)
		}
	case OpAbove:
		if err := validID(r.A); err != nil {
			return err
		}
		if len(r.Points) == 0 {
			return fmt.Errorf("%w: above requires points", ErrInvalidRule)
		}
		for _, id := range r.Points {
			if err := validID(id); err != nil {
				return err
			}
		}
	case OpAll, OpAny:
		if len(r.Rules) == 0 {
			return fmt.Errorf("%w: %s requires sub-rules", ErrInvalidRule, r.Op)
		}
		for i, sub := range r.Rules {
			if err := sub.Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", r.Op, i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidRule, r.Op)
	}
	return nil
}

func validID(id int) error {
	if id < 0 || id >= hand.NumKeypoints {
		return fmt.Errorf("%w: keypoint %d out of range", ErrInvalidRule, id)
	}
	return nil
}

// Eval evaluates the rule against a frame. It has no side effects; a term
// that references a keypoint of an absent hand is false.
func (r Rule) Eval(f hand.Frame, p Params) bool {
	switch r.Op {
	case OpTouch:
		radius := r.Dist
		if radius <= 0 {
			radius = p.Touch
		}
		d, ok := distance(f, r.A, r.B)
		return ok && d < radius
	case OpWithin:
		d, ok := distance(f, r.A, r.B)
		return ok && d < r.Dist
	case OpApart:
		d, ok := distance(f, r.A, r.B)
		return ok && d > r.Dist
	case OpAbove:
		a, ok := f.Point(r.A)
		if !ok || len(r.Points) == 0 {
			return false
		}
		for _, id := range r.Points {
			b, ok := f.Point(id)
			if !ok || a.Y <= b.Y {
				return false
			}
		}
		return true
	case OpAll:
		if len(r.Rules) == 0 {
			return false
		}
		for _, sub := range r.Rules {
			if !sub.Eval(f, p) {
				return false
			}
		}
		return true
	case OpAny:
		for _, sub := range r.Rules {
			if sub.Eval(f, p) {
				return true
			}
		}
		return false
	}
	return false
}

func distance(f hand.Frame, a, b int) (float64, bool) {
	pa, ok := f.Point(a)
	if !ok {
		return 0, false
	}
	pb, ok := f.Point(b)
	if !ok {
		return 0, false
	}
	return hand.Distance(pa, pb), true
}

// Keypoints returns the sorted set of keypoint ids the rule reads.
func (r Rule) Keypoints() []int {
	seen := make(map[int]bool)
	r.collect(seen)
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (r Rule) collect(seen map[int]bool) {
	switch r.Op {
	case OpTouch, OpWithin, OpApart:
		seen[r.A] = true
		seen[r.B] = true
	case OpAbove:
		seen[r.A] = true
		for _, id := range r.Points {
			seen[id] = true
		}
	case OpAll, OpAny:
		for _, sub := range r.Rules {
			sub.collect(seen)
		}
	}
}

// withDistance returns a copy of r with Dist replaced in every within and
// apart term.
func (r Rule) withDistance(d float64) Rule {
	out := r
	switch r.Op {
	case OpWithin, OpApart:
		out.Dist = d
	case OpAll, OpAny:
		out.Rules = make([]Rule, len(r.Rules))
		for i, sub := range r.Rules {
			out.Rules[i] = sub.withDistance(d)
		}
	}
	return out
}
