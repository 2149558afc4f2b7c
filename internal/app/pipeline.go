package app

import (
	"time"

	"github.com/ayusman/fingerspell/internal/hand"
	"github.com/ayusman/fingerspell/internal/metrics"
)

// runPipeline is the evaluation loop. Every tick it:
//  1. loads the latest payload from the source
//  2. re-parses it only when a new payload arrived
//  3. treats a payload older than FrameTTL as a frame with no hands
//  4. steps the sequencer with the frame and the elapsed time
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	a.lastTick = time.Now()
	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			a.cycle(now)
		}
	}
}

// cycle runs one evaluation step at now.
func (a *App) cycle(now time.Time) {
	start := time.Now()

	var dt time.Duration
	if !a.lastTick.IsZero() {
		dt = now.Sub(a.lastTick)
	}
	a.lastTick = now

	a.mu.RLock()
	frame := a.frame
	a.mu.RUnlock()

	p := a.config.Source.Latest()
	switch {
	case p == nil:
		frame = hand.Frame{}
	case now.Sub(p.ReceivedAt) > a.config.FrameTTL:
		// The tracker sends nothing while no hands are visible.
		if a.staleSeq != p.Seq {
			a.staleSeq = p.Seq
			metrics.RecordStale()
		}
		frame = hand.Frame{}
	case p.Seq != a.lastSeq:
		a.lastSeq = p.Seq
		var result hand.ParseResult
		frame, result = a.config.Projector.ParsePayloadResult(p.Text)
		metrics.RecordFrame(result, frame.Hands())
		if result == hand.ResultMalformed {
			a.logger.Debug("malformed payload", "seq", p.Seq, "bytes", len(p.Text))
		}
	}

	a.mu.Lock()
	a.frame = frame
	if a.enabled {
		a.sequencer.Step(frame, dt)
	}
	a.mu.Unlock()

	metrics.RecordCycle(time.Since(start).Seconds())
}
