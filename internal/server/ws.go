package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fingerspell/internal/hand"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	writeWait       = time.Second
	hubBufferSize   = 64
	landmarksPeriod = 66 * time.Millisecond // ~15 FPS
)

// Event types sent over the feedback stream.
const (
	EventProgress  = "progress"
	EventConfirmed = "confirmed"
	EventCompleted = "completed"
	EventTarget    = "target"
)

// Event is one feedback message on the websocket stream.
type Event struct {
	Type      string  `json:"type"`
	Gesture   string  `json:"gesture,omitempty"`
	Index     *int    `json:"index,omitempty"`
	Progress  float64 `json:"progress"`
	Timestamp int64   `json:"timestamp"`
}

// Hub is a feedback sink that broadcasts sequencer events to websocket
// clients. Sink calls never block: events are queued and dropped when the
// queue is full.
type Hub struct {
	logger  *slog.Logger
	events  chan Event
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	dropped atomic.Uint64
	done    chan struct{}
	once    sync.Once
}

// NewHub creates a Hub and starts its broadcast goroutine.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:  logger.With("component", "ws"),
		events:  make(chan Event, hubBufferSize),
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// Close stops the broadcast goroutine and disconnects all clients.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)

		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of events discarded because the queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// OnProgress, OnGestureConfirmed, OnSessionCompleted and OnTargetChanged
// queue the matching event for broadcast.
func (h *Hub) OnProgress(fraction float64) {
	h.publish(Event{Type: EventProgress, Progress: fraction})
}

func (h *Hub) OnGestureConfirmed(name string) {
	h.publish(Event{Type: EventConfirmed, Gesture: name})
}

func (h *Hub) OnSessionCompleted() {
	h.publish(Event{Type: EventCompleted})
}

func (h *Hub) OnTargetChanged(name string, index int) {
	h.publish(Event{Type: EventTarget, Gesture: name, Index: &index})
}

func (h *Hub) publish(e Event) {
	e.Timestamp = time.Now().UnixMilli()
	select {
	case h.events <- e:
	default:
		h.dropped.Add(1)
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends queued events to all connected clients.
func (h *Hub) broadcast() {
	for {
		select {
		case <-h.done:
			return
		case e := <-h.events:
			msg, err := json.Marshal(e)
			if err != nil {
				continue
			}

			h.mu.RLock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.logger.Debug("websocket write failed", "error", err)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// FrameSource provides the most recently evaluated frame.
type FrameSource interface {
	Frame() hand.Frame
}

// LandmarksHandler streams the evaluated keypoint frame via WebSocket.
type LandmarksHandler struct {
	source FrameSource
}

// NewLandmarksHandler creates a new LandmarksHandler for the given source.
func NewLandmarksHandler(source FrameSource) *LandmarksHandler {
	return &LandmarksHandler{source: source}
}

// ServeHTTP upgrades the connection and pushes the current frame at ~15 FPS
// until the client disconnects.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(landmarksPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			msg, err := json.Marshal(map[string]any{
				"frame":     h.source.Frame(),
				"timestamp": time.Now().UnixMilli(),
			})
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
