package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/lesson"
	"github.com/ayusman/fingerspell/internal/receiver"
	"github.com/ayusman/fingerspell/internal/store"
)

type noPayloads struct{}

func (noPayloads) Latest() *receiver.Payload { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupServer starts an httptest server backed by a real app and store.
func setupServer(t *testing.T) (*httptest.Server, *app.App, *Hub) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Lessons().Seed(gesture.Plans()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	hub := NewHub(quietLogger())
	t.Cleanup(hub.Close)

	a, err := app.New(app.Config{
		Store:  s,
		Source: noPayloads{},
		Lesson: config.LessonConfig{Name: gesture.PlanAlphabet},
		Sinks:  []lesson.Sink{hub},
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	srv := New(Config{Store: s, Controller: a, Hub: hub, Frames: a, Logger: quietLogger()})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, a, hub
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAPI_LessonWorkflow(t *testing.T) {
	ts, a, hub := setupServer(t)
	client := ts.Client()

	conn := dialWS(t, ts, "/ws")
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("clients = %d, want 1", hub.Clients())
	}

	// 1. The alphabet waits for the start trigger
	resp, err := client.Get(ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session error = %v", err)
	}
	var session struct {
		Lesson string `json:"lesson"`
		Phase  string `json:"phase"`
	}
	json.NewDecoder(resp.Body).Decode(&session)
	resp.Body.Close()
	if session.Lesson != gesture.PlanAlphabet || session.Phase != "idle" {
		t.Fatalf("session = %+v, want idle alphabet", session)
	}

	// 2. Switch to the practice lesson
	resp, err = client.Post(ts.URL+"/api/lessons/practice/select", "application/json", nil)
	if err != nil {
		t.Fatalf("POST select error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST select status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if a.Snapshot().Target != "ThumbsUp" {
		t.Errorf("target = %s, want ThumbsUp", a.Snapshot().Target)
	}

	// 3. The hub announces the new target
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event.Type != EventTarget || event.Gesture != "ThumbsUp" || event.Index == nil || *event.Index != 0 {
		t.Errorf("event = %+v, want target ThumbsUp at 0", event)
	}

	// 4. Restart keeps the lesson
	resp, err = client.Post(ts.URL+"/api/session/restart", "application/json", nil)
	if err != nil {
		t.Fatalf("POST restart error = %v", err)
	}
	resp.Body.Close()
	if a.Plan().Name != gesture.PlanPractice {
		t.Errorf("lesson = %s, want practice", a.Plan().Name)
	}

	// 5. Lessons list marks the current one
	resp, _ = client.Get(ts.URL + "/api/lessons")
	var listed struct {
		Lessons []struct {
			Name    string `json:"name"`
			Current bool   `json:"current"`
		} `json:"lessons"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	current := ""
	for _, l := range listed.Lessons {
		if l.Current {
			current = l.Name
		}
	}
	if current != gesture.PlanPractice {
		t.Errorf("current lesson = %q, want practice", current)
	}
}

func TestAPI_CueWorkflow(t *testing.T) {
	ts, _, _ := setupServer(t)
	client := ts.Client()

	// 1. Create a cue
	createBody := `{"event": "completed", "plugin_name": "chime", "action_name": "play"}`
	resp, err := client.Post(ts.URL+"/api/cues", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/cues error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// 2. Delete it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/cues/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 3. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/cues/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_Landmarks(t *testing.T) {
	ts, _, _ := setupServer(t)
	conn := dialWS(t, ts, "/api/landmarks")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Frame     map[string]any `json:"frame"`
		Timestamp int64          `json:"timestamp"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Timestamp == 0 {
		t.Error("expected timestamp")
	}
	if len(msg.Frame) != 0 {
		t.Errorf("expected empty frame, got %v", msg.Frame)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	ts, _, _ := setupServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status  string `json:"status"`
		Lesson  string `json:"lesson"`
		Enabled bool   `json:"enabled"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" || health.Lesson != gesture.PlanAlphabet || !health.Enabled {
		t.Errorf("health = %+v", health)
	}
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := &Hub{
		logger:  quietLogger(),
		events:  make(chan Event, 1),
		clients: map[*websocket.Conn]bool{},
		done:    make(chan struct{}),
	}

	h.OnProgress(0.1)
	h.OnGestureConfirmed("A")
	h.OnSessionCompleted()

	if h.Dropped() != 2 {
		t.Errorf("dropped = %d, want 2", h.Dropped())
	}
	e := <-h.events
	if e.Type != EventProgress || e.Progress != 0.1 || e.Timestamp == 0 {
		t.Errorf("event = %+v", e)
	}
}

func TestEvent_ProgressResetKeepsField(t *testing.T) {
	data, err := json.Marshal(Event{Type: EventProgress, Progress: 0, Timestamp: 1})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v, ok := decoded["progress"]; !ok || v != float64(0) {
		t.Errorf("expected progress 0 in %s", data)
	}
}
