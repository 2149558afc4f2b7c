package lesson

import (
	"log/slog"
	"time"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/hand"
)

// Snapshot is a read-only view of the sequencer for the API and tray.
type Snapshot struct {
	SessionID         string        `json:"session_id"`
	Lesson            string        `json:"lesson"`
	Phase             Phase         `json:"phase"`
	Index             int           `json:"index"`
	Total             int           `json:"total"`
	Target            string        `json:"target,omitempty"`
	Candidate         Candidate     `json:"candidate"`
	Progress          float64       `json:"progress"`
	FeedbackRemaining time.Duration `json:"feedback_remaining,omitempty"`
}

// Sequencer is the lesson state machine:
//
//	Idle -> G1 -> G2 -> ... -> Gn -> Completed
//
// It is not safe for concurrent use; callers serialize Step, Confirm and
// Restart.
type Sequencer struct {
	bank   *gesture.Bank
	timing gesture.Timing
	sink   Sink
	logger *slog.Logger

	session      Session
	timer        HoldTimer
	feedbackLeft time.Duration
	progress     float64
	reported     float64
	completed    bool
}

// NewSequencer creates a sequencer for bank. A nil sink is replaced with a
// no-op sink and logged as a warning.
func NewSequencer(bank *gesture.Bank, timing gesture.Timing, sink Sink, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		logger.Warn("no feedback sink configured, feedback will be discarded")
		sink = NopSink{}
	}

	s := &Sequencer{
		bank:     bank,
		timing:   timing,
		sink:     sink,
		logger:   logger.With("component", "sequencer", "lesson", bank.Plan().Name),
		session:  NewSession(bank.HasTrigger()),
		reported: -1,
	}
	if s.session.Phase == PhaseActive {
		s.announceTarget()
	}
	return s
}

// Step runs one evaluation cycle for frame, dt after the previous one.
func (s *Sequencer) Step(f hand.Frame, dt time.Duration) {
	switch s.session.Phase {
	case PhaseCompleted:
		return

	case PhaseIdle:
		if s.bank.Triggered(f) {
			s.logger.Info("start trigger observed", "session", s.session.ID)
			s.enter(0)
		}

	case PhaseFeedback:
		s.feedbackLeft -= dt
		if s.feedbackLeft <= 0 {
			s.advance()
		}

	case PhaseActive:
		g, ok := s.bank.Gesture(s.session.Index)
		if !ok {
			s.advance()
			return
		}

		identity := None
		if s.bank.Classify(s.session.Index, f) {
			identity = g.Name
		}

		threshold := s.timing.Threshold(g.Name)
		fired := s.timer.Observe(identity, dt, threshold)
		s.session.Candidate = s.timer.Candidate()
		s.setProgress(s.timer.Progress(threshold))

		if fired {
			s.Confirm(g.Name)
		}
	}
}

// Confirm confirms the named gesture. It is a no-op unless name is the
// active target; it reports whether the confirmation was accepted.
func (s *Sequencer) Confirm(name string) bool {
	if s.session.Phase != PhaseActive {
		return false
	}
	g, ok := s.bank.Gesture(s.session.Index)
	if !ok || g.Name != name {
		s.logger.Debug("ignoring confirmation for inactive gesture", "gesture", name, "target", g.Name)
		return false
	}

	s.logger.Info("gesture confirmed", "gesture", name, "index", s.session.Index, "session", s.session.ID)
	s.sink.OnGestureConfirmed(name)

	if s.timing.Feedback <= 0 {
		s.advance()
		return true
	}
	s.session.Phase = PhaseFeedback
	s.feedbackLeft = s.timing.Feedback
	return true
}

// Restart starts a new session at the first gesture, skipping the trigger.
func (s *Sequencer) Restart() {
	s.session.Reset(false)
	s.timer.Reset()
	s.feedbackLeft = 0
	s.completed = false
	s.reported = -1
	s.setProgress(0)
	s.logger.Info("session restarted", "session", s.session.ID)
	s.announceTarget()
}

// Session returns a copy of the session.
func (s *Sequencer) Session() Session {
	return s.session
}

// Bank returns the classifier bank.
func (s *Sequencer) Bank() *gesture.Bank {
	return s.bank
}

// Target returns the active target gesture name, or "" outside the active
// and feedback phases.
func (s *Sequencer) Target() string {
	if s.session.Phase != PhaseActive && s.session.Phase != PhaseFeedback {
		return ""
	}
	g, _ := s.bank.Gesture(s.session.Index)
	return g.Name
}

// Snapshot returns the current state.
func (s *Sequencer) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.session.ID,
		Lesson:    s.bank.Plan().Name,
		Phase:     s.session.Phase,
		Index:     s.session.Index,
		Total:     s.bank.Len(),
		Target:    s.Target(),
		Candidate: s.session.Candidate,
		Progress:  s.progress,
	}
	if s.session.Phase == PhaseFeedback {
		snap.FeedbackRemaining = s.feedbackLeft
	}
	return snap
}

func (s *Sequencer) enter(i int) {
	s.session.Phase = PhaseActive
	s.session.Index = i
	s.session.Candidate = Candidate{}
	s.timer.Reset()
	s.setProgress(0)
	s.announceTarget()
}

func (s *Sequencer) advance() {
	next := s.session.Index + 1
	if next < s.bank.Len() {
		s.enter(next)
		return
	}

	s.session.Phase = PhaseCompleted
	s.session.Index = s.bank.Len()
	s.session.Candidate = Candidate{}
	s.timer.Reset()
	s.feedbackLeft = 0
	if !s.completed {
		s.completed = true
		s.logger.Info("session completed", "session", s.session.ID)
		s.sink.OnSessionCompleted()
	}
}

func (s *Sequencer) setProgress(p float64) {
	s.progress = p
	if p == s.reported {
		return
	}
	s.reported = p
	s.sink.OnProgress(p)
}

func (s *Sequencer) announceTarget() {
	obs, ok := s.sink.(TargetObserver)
	if !ok {
		return
	}
	if g, ok := s.bank.Gesture(s.session.Index); ok {
		obs.OnTargetChanged(g.Name, s.session.Index)
	}
}
