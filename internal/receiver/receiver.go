// Package receiver listens for keypoint datagrams from the external hand
// tracker and keeps only the most recent one.
package receiver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// Default receiver settings.
const (
	DefaultPort        = 12345
	DefaultReadTimeout = 250 * time.Millisecond
	DefaultBufferSize  = 65536
)

// ErrRunning is returned when Start is called on a receiver that is already listening.
var ErrRunning = errors.New("receiver is already running")

// Config holds receiver options. Zero values fall back to defaults.
type Config struct {
	ReadTimeout time.Duration
	BufferSize  int
	Logger      *slog.Logger
}

// Payload is one decoded datagram.
type Payload struct {
	Text       string
	Seq        uint64
	ReceivedAt time.Time
}

// Stats is a snapshot of receiver counters.
type Stats struct {
	Received     uint64 `json:"received"`
	Overwritten  uint64 `json:"overwritten"`
	DecodeErrors uint64 `json:"decode_errors"`
	ReadErrors   uint64 `json:"read_errors"`
}

// Receiver owns a UDP socket and a single-slot buffer holding the latest payload.
// One goroutine writes the slot; any number of readers may load it.
type Receiver struct {
	config Config
	logger *slog.Logger

	latest   atomic.Pointer[Payload]
	lastRead atomic.Uint64
	seq      atomic.Uint64

	received     atomic.Uint64
	overwritten  atomic.Uint64
	decodeErrors atomic.Uint64
	readErrors   atomic.Uint64

	mu       sync.Mutex
	conn     *net.UDPConn
	stopping atomic.Bool
	done     chan struct{}
}

// New creates a receiver. It does not bind until Start is called.
func New(config Config) *Receiver {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		config: config,
		logger: logger.With("component", "receiver"),
	}
}

// Start binds the UDP port and spawns the receive loop. Port 0 picks an
// ephemeral port, see Addr.
func (r *Receiver) Start(port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return ErrRunning
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return fmt.Errorf("bind udp port %d: %w", port, err)
	}

	r.conn = conn
	r.stopping.Store(false)
	r.done = make(chan struct{})
	go r.loop(conn, r.done)

	r.logger.Info("listening for keypoints", "addr", conn.LocalAddr().String())
	return nil
}

// Stop signals the loop, closes the socket and waits for the loop to exit.
// Calling Stop on a stopped receiver is a no-op.
func (r *Receiver) Stop() {
	r.mu.Lock()
	conn, done := r.conn, r.done
	r.conn, r.done = nil, nil
	r.mu.Unlock()

	if conn == nil {
		return
	}

	r.stopping.Store(true)
	if err := conn.Close(); err != nil {
		r.logger.Warn("closing socket", "error", err)
	}
	<-done
	r.logger.Info("receiver stopped")
}

// Running reports whether the socket is bound.
func (r *Receiver) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// Addr returns the bound local address, or nil when not running.
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Latest returns the most recent payload, or nil if none has arrived yet.
func (r *Receiver) Latest() *Payload {
	p := r.latest.Load()
	if p == nil {
		return nil
	}
	for {
		read := r.lastRead.Load()
		if p.Seq <= read || r.lastRead.CompareAndSwap(read, p.Seq) {
			break
		}
	}
	return p
}

// LatestPayload returns the text of the most recent payload, or "".
func (r *Receiver) LatestPayload() string {
	if p := r.Latest(); p != nil {
		return p.Text
	}
	return ""
}

// Stats returns the current counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		Received:     r.received.Load(),
		Overwritten:  r.overwritten.Load(),
		DecodeErrors: r.decodeErrors.Load(),
		ReadErrors:   r.readErrors.Load(),
	}
}

// store replaces the slot. A payload replaced before any reader saw it counts
// as overwritten.
func (r *Receiver) store(text string) {
	seq := r.seq.Add(1)
	prev := r.latest.Swap(&Payload{Text: text, Seq: seq, ReceivedAt: time.Now()})
	if prev != nil && prev.Seq > r.lastRead.Load() {
		r.overwritten.Add(1)
	}
	r.received.Add(1)
}

func (r *Receiver) loop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, r.config.BufferSize)
	for {
		if r.stopping.Load() {
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, net.ErrClosed) || r.stopping.Load():
				return
			case errors.As(err, &netErr) && netErr.Timeout():
				continue
			default:
				r.readErrors.Add(1)
				r.logger.Warn("read datagram", "error", err)
				continue
			}
		}

		data := buf[:n]
		if !utf8.Valid(data) {
			r.decodeErrors.Add(1)
			r.logger.Warn("dropping non-utf8 datagram", "bytes", n)
			continue
		}

		r.store(string(data))
	}
}
