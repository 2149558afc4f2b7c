package app

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/hand"
	"github.com/ayusman/fingerspell/internal/lesson"
	"github.com/ayusman/fingerspell/internal/receiver"
	"github.com/ayusman/fingerspell/internal/store"
)

const tick = 100 * time.Millisecond

// fakeSource hands out payloads the way the receiver does.
type fakeSource struct {
	mu  sync.Mutex
	p   *receiver.Payload
	seq uint64
}

func (s *fakeSource) Send(text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.p = &receiver.Payload{Text: text, Seq: s.seq, ReceivedAt: at}
}

func (s *fakeSource) Latest() *receiver.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

type recorder struct {
	mu        sync.Mutex
	progress  []float64
	confirmed []string
	completed int
	targets   []string
}

func (r *recorder) OnProgress(f float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, f)
}

func (r *recorder) OnGestureConfirmed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, name)
}

func (r *recorder) OnSessionCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recorder) OnTargetChanged(name string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, name)
}

func (r *recorder) Confirmed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.confirmed...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seconds(s float64) *float64 { return &s }

// newPracticeApp returns an app on the practice lesson with a 1s hold and the
// given feedback window.
func newPracticeApp(t *testing.T, feedback float64, s *store.Store) (*App, *fakeSource, *recorder) {
	t.Helper()
	src := &fakeSource{}
	rec := &recorder{}
	a, err := New(Config{
		Store:  s,
		Source: src,
		Lesson: config.LessonConfig{
			Name:            gesture.PlanPractice,
			HoldThresholdS:  seconds(1),
			FeedbackWindowS: seconds(feedback),
			TouchRadius:     gesture.DefaultTouch,
		},
		Sinks:  []lesson.Sink{rec},
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, src, rec
}

// stream sends text as a fresh payload every tick for the given number of
// cycles and returns the time of the last cycle.
func stream(a *App, src *fakeSource, text string, from time.Time, cycles int) time.Time {
	now := from
	for i := 0; i < cycles; i++ {
		now = now.Add(tick)
		src.Send(text, now)
		a.cycle(now)
	}
	return now
}

func TestApp_ThumbsUpConfirmsOnceThenFeedback(t *testing.T) {
	a, src, rec := newPracticeApp(t, 0.5, nil)
	thumbsUp := hand.DefaultProjector.Encode(hand.ThumbsUp())

	// The first cycle has no elapsed time, so ten more reach the 1s hold.
	now := stream(a, src, thumbsUp, time.Unix(1000, 0), 10)
	if len(rec.Confirmed()) != 0 {
		t.Fatalf("expected no confirmation before the hold threshold, got %v", rec.Confirmed())
	}

	now = stream(a, src, thumbsUp, now, 1)
	if got := rec.Confirmed(); len(got) != 1 || got[0] != "ThumbsUp" {
		t.Fatalf("expected [ThumbsUp], got %v", got)
	}
	if snap := a.Snapshot(); snap.Phase != lesson.PhaseFeedback {
		t.Errorf("expected feedback phase, got %s", snap.Phase)
	}

	now = stream(a, src, thumbsUp, now, 4)
	if snap := a.Snapshot(); snap.Phase != lesson.PhaseFeedback || snap.Index != 0 {
		t.Errorf("expected to remain in feedback, got %s at %d", snap.Phase, snap.Index)
	}

	stream(a, src, thumbsUp, now, 1)
	snap := a.Snapshot()
	if snap.Phase != lesson.PhaseActive || snap.Index != 1 || snap.Target != "Peace" {
		t.Errorf("expected active on Peace, got %s at %d (%s)", snap.Phase, snap.Index, snap.Target)
	}
	if len(rec.Confirmed()) != 1 {
		t.Errorf("expected exactly one confirmation, got %v", rec.Confirmed())
	}
}

func TestApp_MalformedPayloadRecovers(t *testing.T) {
	a, src, _ := newPracticeApp(t, 0, nil)
	now := time.Unix(1000, 0)

	now = stream(a, src, "[1,2,abc]", now, 1)
	if !a.Frame().Empty() {
		t.Error("expected empty frame for malformed payload")
	}

	now = stream(a, src, hand.DefaultProjector.Encode(hand.ThumbsUp(), hand.Fist()), now, 1)
	if n := a.Frame().Hands(); n != 2 {
		t.Errorf("expected 2 hands after recovery, got %d", n)
	}

	stream(a, src, hand.DefaultProjector.Encode(hand.Peace()), now, 1)
	f := a.Frame()
	if f.Right == nil || f.Left != nil {
		t.Errorf("expected only the first hand, got %d hands", f.Hands())
	}
}

func TestApp_StalePayloadCountsAsNoHands(t *testing.T) {
	a, src, rec := newPracticeApp(t, 0, nil)
	start := time.Unix(1000, 0)

	src.Send(hand.DefaultProjector.Encode(hand.ThumbsUp()), start)
	a.cycle(start)
	if a.Frame().Empty() {
		t.Fatal("expected fresh payload to be parsed")
	}

	// The tracker stops sending; the same payload ages past the TTL.
	for i := 1; i <= 20; i++ {
		a.cycle(start.Add(time.Duration(i) * tick))
	}
	if !a.Frame().Empty() {
		t.Error("expected stale payload to be treated as an empty frame")
	}
	if len(rec.Confirmed()) != 0 {
		t.Errorf("stale frames must not confirm, got %v", rec.Confirmed())
	}
	if p := a.Snapshot().Progress; p != 0 {
		t.Errorf("expected progress reset, got %f", p)
	}
}

func TestApp_DisabledDoesNotAdvance(t *testing.T) {
	a, src, rec := newPracticeApp(t, 0, nil)
	a.SetEnabled(false)
	if a.IsEnabled() {
		t.Fatal("expected app to be disabled")
	}

	now := stream(a, src, hand.DefaultProjector.Encode(hand.ThumbsUp()), time.Unix(1000, 0), 30)
	if len(rec.Confirmed()) != 0 {
		t.Errorf("expected no confirmation while disabled, got %v", rec.Confirmed())
	}

	a.SetEnabled(true)
	stream(a, src, hand.DefaultProjector.Encode(hand.ThumbsUp()), now, 10)
	if len(rec.Confirmed()) != 1 {
		t.Errorf("expected one confirmation once enabled, got %v", rec.Confirmed())
	}
}

func TestApp_RestartAndConfirm(t *testing.T) {
	a, _, rec := newPracticeApp(t, 0, nil)
	first := a.Snapshot().SessionID

	if a.Confirm("Fist") {
		t.Error("expected confirmation of a non-target gesture to be ignored")
	}
	if !a.Confirm("ThumbsUp") {
		t.Error("expected confirmation of the target to be accepted")
	}
	if a.Snapshot().Index != 1 {
		t.Errorf("expected index 1, got %d", a.Snapshot().Index)
	}

	a.Restart()
	snap := a.Snapshot()
	if snap.Index != 0 || snap.SessionID == first {
		t.Errorf("expected a new session at index 0, got %s at %d", snap.SessionID, snap.Index)
	}
	if len(rec.targets) < 2 || rec.targets[len(rec.targets)-1] != "ThumbsUp" {
		t.Errorf("expected restart to announce ThumbsUp, got %v", rec.targets)
	}
}

func TestApp_SelectLesson(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()
	if _, err := s.Lessons().Seed(gesture.Plans()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	a, _, _ := newPracticeApp(t, 0, s)
	if got := a.Plan().Name; got != gesture.PlanPractice {
		t.Fatalf("expected practice, got %s", got)
	}

	t.Run("unknown lesson", func(t *testing.T) {
		err := a.SelectLesson("semaphore")
		if !errors.Is(err, gesture.ErrUnknownPlan) {
			t.Errorf("expected ErrUnknownPlan, got %v", err)
		}
		if got := a.Plan().Name; got != gesture.PlanPractice {
			t.Errorf("expected lesson unchanged, got %s", got)
		}
	})

	t.Run("selection persists", func(t *testing.T) {
		if err := a.SelectLesson(gesture.PlanAlphabet); err != nil {
			t.Fatalf("SelectLesson() error = %v", err)
		}
		snap := a.Snapshot()
		if snap.Lesson != gesture.PlanAlphabet || snap.Phase != lesson.PhaseIdle {
			t.Errorf("expected idle alphabet session, got %s in %s", snap.Lesson, snap.Phase)
		}

		reopened, _, _ := newPracticeApp(t, 0, s)
		if got := reopened.Plan().Name; got != gesture.PlanAlphabet {
			t.Errorf("expected saved lesson alphabet, got %s", got)
		}
	})

	t.Run("custom lesson from the store", func(t *testing.T) {
		custom := gesture.Plan{
			Name:     "thumbs",
			Gestures: []gesture.Gesture{{Name: "up", Rule: gesture.ThumbsUp()}},
			Timing:   gesture.Timing{Hold: time.Second},
		}
		if _, err := s.Lessons().Save(custom, false); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := a.SelectLesson("thumbs"); err != nil {
			t.Fatalf("SelectLesson() error = %v", err)
		}
		if a.Snapshot().Target != "up" {
			t.Errorf("expected target up, got %q", a.Snapshot().Target)
		}
	})
}

func TestApp_EnabledPersists(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	a, _, _ := newPracticeApp(t, 0, s)
	a.SetEnabled(false)

	reopened, _, _ := newPracticeApp(t, 0, s)
	if reopened.IsEnabled() {
		t.Error("expected disabled state to be restored")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		if _, err := New(Config{Logger: quietLogger()}); err == nil {
			t.Error("expected error without a payload source")
		}
	})

	t.Run("unknown lesson", func(t *testing.T) {
		_, err := New(Config{
			Source: &fakeSource{},
			Lesson: config.LessonConfig{Name: "semaphore"},
			Logger: quietLogger(),
		})
		if !errors.Is(err, gesture.ErrUnknownPlan) {
			t.Errorf("expected ErrUnknownPlan, got %v", err)
		}
	})

	t.Run("defaults and nil sinks", func(t *testing.T) {
		a, err := New(Config{
			Source: &fakeSource{},
			Sinks:  []lesson.Sink{nil},
			Logger: quietLogger(),
		})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if a.Plan().Name != gesture.PlanAlphabet {
			t.Errorf("expected alphabet by default, got %s", a.Plan().Name)
		}
		if a.config.TickInterval != DefaultTickInterval || a.config.FrameTTL != DefaultFrameTTL {
			t.Errorf("unexpected loop defaults %v %v", a.config.TickInterval, a.config.FrameTTL)
		}
		if len(a.sinks) != 2 {
			t.Errorf("expected only log and metrics sinks, got %d", len(a.sinks))
		}
		a.AddSink(nil)
		if len(a.sinks) != 2 {
			t.Errorf("expected nil sink to be ignored, got %d", len(a.sinks))
		}
	})

	t.Run("distance override for unknown gesture is ignored", func(t *testing.T) {
		_, err := New(Config{
			Source: &fakeSource{},
			Lesson: config.LessonConfig{
				Name:      gesture.PlanPractice,
				Distances: map[string]float64{"Wave": 0.5, "Peace": 0.6},
			},
			Logger: quietLogger(),
		})
		if err != nil {
			t.Errorf("New() error = %v", err)
		}
	})
}

func TestApp_AddSinkAnnouncesActiveTarget(t *testing.T) {
	a, _, _ := newPracticeApp(t, 0, nil)

	late := &recorder{}
	a.AddSink(late)
	if len(late.targets) != 1 || late.targets[0] != "ThumbsUp" {
		t.Errorf("expected late sink to be told ThumbsUp, got %v", late.targets)
	}

	// A plan waiting for its trigger has no target to announce yet.
	idle, err := New(Config{
		Source: &fakeSource{},
		Lesson: config.LessonConfig{Name: gesture.PlanAlphabet},
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	waiting := &recorder{}
	idle.AddSink(waiting)
	if len(waiting.targets) != 0 {
		t.Errorf("expected no target while idle, got %v", waiting.targets)
	}
}

func TestApp_StartStop(t *testing.T) {
	a, _, _ := newPracticeApp(t, 0, nil)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	if !a.Running() {
		t.Error("expected app to be running")
	}

	a.Stop()
	a.Stop()
	if a.Running() {
		t.Error("expected app to be stopped")
	}
}
