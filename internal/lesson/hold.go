package lesson

import "time"

// None is the candidate identity for "nothing matched this cycle".
const None = ""

// Candidate is the gesture currently being held and for how long.
type Candidate struct {
	Gesture string        `json:"gesture"`
	Elapsed time.Duration `json:"elapsed"`
}

// HoldTimer debounces classifications: a candidate is confirmed only after it
// has been observed without interruption for the threshold duration.
type HoldTimer struct {
	candidate string
	elapsed   time.Duration
	fired     bool
}

// Observe records one evaluation cycle. A change of identity, including a
// change to None, discards accumulated time. It returns true exactly once per
// run, on the cycle the run reaches threshold; it stays latched until Reset.
func (h *HoldTimer) Observe(identity string, dt, threshold time.Duration) bool {
	if identity != h.candidate {
		h.candidate = identity
		h.elapsed = 0
		h.fired = false
	}
	if identity == None {
		return false
	}
	if dt > 0 {
		h.elapsed += dt
	}
	if h.fired || h.elapsed < threshold {
		return false
	}
	h.fired = true
	return true
}

// Progress returns elapsed/threshold clamped to [0, 1].
func (h *HoldTimer) Progress(threshold time.Duration) float64 {
	if h.candidate == None {
		return 0
	}
	if threshold <= 0 {
		return 1
	}
	p := float64(h.elapsed) / float64(threshold)
	if p > 1 {
		return 1
	}
	return p
}

// Candidate returns the current candidate.
func (h *HoldTimer) Candidate() Candidate {
	return Candidate{Gesture: h.candidate, Elapsed: h.elapsed}
}

// Fired reports whether the current run already confirmed.
func (h *HoldTimer) Fired() bool {
	return h.fired
}

// Reset clears the candidate and re-arms the timer.
func (h *HoldTimer) Reset() {
	*h = HoldTimer{}
}
