package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/hand"
	"github.com/ayusman/fingerspell/internal/lesson"
	"github.com/ayusman/fingerspell/internal/metrics"
	"github.com/ayusman/fingerspell/internal/plugin"
	"github.com/ayusman/fingerspell/internal/receiver"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/store"
)

type stack struct {
	store    *store.Store
	receiver *receiver.Receiver
	app      *app.App
	ts       *httptest.Server
	cueLog   string
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seconds(s float64) *float64 { return &s }

// writeRecorderPlugin installs a plugin that appends each request to a log.
func writeRecorderPlugin(t *testing.T, dir string) string {
	t.Helper()

	pluginDir := filepath.Join(dir, "recorder")
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("create plugin dir: %v", err)
	}
	logPath := filepath.Join(dir, "cues.log")

	manifest := `{"name": "recorder", "version": "1.0.0", "executable": "recorder.sh", "actions": ["record"]}`
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	script := "#!/bin/sh\ncat >> \"" + logPath + "\"\necho >> \"" + logPath + "\"\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "recorder.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return logPath
}

// newStack wires store, receiver, app, cue runner and HTTP server the way
// the run command does, on the practice lesson with a short hold.
func newStack(t *testing.T) *stack {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping e2e test on Windows")
	}

	tmpDir := t.TempDir()
	logger := quietLogger()

	st, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.Lessons().Seed(gesture.Plans()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	rcv := receiver.New(receiver.Config{ReadTimeout: 20 * time.Millisecond, Logger: logger})
	if err := rcv.Start(0); err != nil {
		t.Fatalf("receiver Start() error = %v", err)
	}
	t.Cleanup(rcv.Stop)

	hub := server.NewHub(logger)
	t.Cleanup(hub.Close)

	a, err := app.New(app.Config{
		Store:  st,
		Source: rcv,
		Lesson: config.LessonConfig{
			Name:            gesture.PlanPractice,
			HoldThresholdS:  seconds(0.2),
			FeedbackWindowS: seconds(0),
		},
		TickInterval: 5 * time.Millisecond,
		Sinks:        []lesson.Sink{hub},
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	pluginDir := filepath.Join(tmpDir, "plugins")
	cueLog := writeRecorderPlugin(t, pluginDir)
	plugins := plugin.NewManager(pluginDir, logger)
	if err := plugins.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	runner, err := plugin.NewRunner(plugin.RunnerConfig{
		Cues:     st.Cues(),
		Plugins:  plugins,
		Executor: plugin.NewExecutor(5 * time.Second),
		Lesson:   func() string { return a.Snapshot().Lesson },
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	a.AddSink(runner)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go runner.Run(ctx)

	srv := server.New(server.Config{
		Store:      st,
		Controller: a,
		Plugins:    plugins,
		Hub:        hub,
		Frames:     a,
		Metrics:    metrics.Handler(metrics.NewRegistry(metrics.NewReceiverCollector(rcv.Stats))),
		Logger:     logger,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	if err := a.Start(); err != nil {
		t.Fatalf("app Start() error = %v", err)
	}
	t.Cleanup(a.Stop)

	return &stack{store: st, receiver: rcv, app: a, ts: ts, cueLog: cueLog}
}

// sendUntil streams payload to the receiver like the tracker does until
// done returns true or the deadline passes.
func (s *stack) sendUntil(t *testing.T, payload string, timeout time.Duration, done func() bool) bool {
	t.Helper()

	conn, err := net.Dial("udp", s.receiver.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if done() {
			return true
		}
		if _, err := conn.Write([]byte(payload)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return done()
}

func (s *stack) session(t *testing.T) map[string]any {
	t.Helper()
	resp, err := s.ts.Client().Get(s.ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("get session error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get session status = %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session error = %v", err)
	}
	return out
}

func TestE2E_ConfirmationRunsCue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	s := newStack(t)
	client := s.ts.Client()

	t.Run("CreateCue", func(t *testing.T) {
		resp, err := client.Post(
			s.ts.URL+"/api/cues",
			"application/json",
			strings.NewReader(`{"event": "confirmed", "gesture": "ThumbsUp", "plugin_name": "recorder", "action_name": "record", "config": {"tone": "high"}}`),
		)
		if err != nil {
			t.Fatalf("create cue error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	t.Run("InitialSession", func(t *testing.T) {
		got := s.session(t)
		if got["lesson"] != gesture.PlanPractice {
			t.Errorf("lesson = %v, want %s", got["lesson"], gesture.PlanPractice)
		}
		if got["target"] != "ThumbsUp" {
			t.Errorf("target = %v, want ThumbsUp", got["target"])
		}
	})

	t.Run("HoldThumbsUp", func(t *testing.T) {
		payload := hand.DefaultProjector.Encode(hand.ThumbsUp())
		ok := s.sendUntil(t, payload, 5*time.Second, func() bool {
			return s.app.Snapshot().Index == 1
		})
		if !ok {
			t.Fatalf("ThumbsUp was not confirmed, snapshot = %+v", s.app.Snapshot())
		}
		if got := s.session(t)["target"]; got != "Peace" {
			t.Errorf("target = %v, want Peace", got)
		}
	})

	t.Run("CueExecuted", func(t *testing.T) {
		var data []byte
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			data, _ = os.ReadFile(s.cueLog)
			if len(data) > 0 {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}

		line := strings.TrimSpace(string(data))
		if line == "" {
			t.Fatal("cue plugin was not executed")
		}
		var req plugin.Request
		if err := json.Unmarshal([]byte(strings.Split(line, "\n")[0]), &req); err != nil {
			t.Fatalf("decode cue request error = %v", err)
		}
		if req.Event != "confirmed" || req.Gesture != "ThumbsUp" || req.Lesson != gesture.PlanPractice {
			t.Errorf("unexpected cue request %+v", req)
		}
		if string(req.Config) != `{"tone":"high"}` && string(req.Config) != `{"tone": "high"}` {
			t.Errorf("config = %s, want the cue config", req.Config)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(s.ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("get metrics error = %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		for _, name := range []string{
			"fingerspell_gestures_confirmed_total",
			"fingerspell_receiver_datagrams_total",
			"fingerspell_frames_total",
		} {
			if !strings.Contains(string(body), name) {
				t.Errorf("metrics output missing %s", name)
			}
		}
	})
}

func TestE2E_DisabledIgnoresFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	s := newStack(t)

	req, _ := http.NewRequest(http.MethodPut, s.ts.URL+"/api/session/enabled", strings.NewReader(`{"enabled": false}`))
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("disable error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("disable status = %d", resp.StatusCode)
	}

	payload := hand.DefaultProjector.Encode(hand.ThumbsUp())
	s.sendUntil(t, payload, 500*time.Millisecond, func() bool { return false })

	if idx := s.app.Snapshot().Index; idx != 0 {
		t.Errorf("index = %d, want 0 while disabled", idx)
	}
	if got := s.session(t)["enabled"]; got != false {
		t.Errorf("enabled = %v, want false", got)
	}

	// The frame is still evaluated for previews while disabled.
	if s.app.Frame().Right == nil {
		t.Error("expected the latest frame to carry the right hand")
	}

	// Re-enabling resumes recognition and the setting survives a restart.
	s.app.SetEnabled(true)
	ok := s.sendUntil(t, payload, 5*time.Second, func() bool { return s.app.Snapshot().Index == 1 })
	if !ok {
		t.Fatal("ThumbsUp was not confirmed after re-enabling")
	}
	if v, _ := s.store.Settings().Get(store.SettingEnabled); v != "true" {
		t.Errorf("saved enabled = %q, want true", v)
	}
}
