package overlay

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

const (
	windowTitle  = "Fingerspell"
	windowPeriod = 33 * time.Millisecond // ~30 FPS
	keyEscape    = 27
)

// Window shows the renderer output in a native window.
type Window struct {
	renderer *Renderer
	// OnClose is called when the user closes the window with Esc or q.
	OnClose func()
}

// NewWindow creates a Window for renderer.
func NewWindow(renderer *Renderer) *Window {
	return &Window{renderer: renderer}
}

// Run shows the overlay until ctx is cancelled or the user presses Esc or q.
// On macOS it must be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	window := gocv.NewWindow(windowTitle)
	defer window.Close()
	window.ResizeWindow(w.renderer.config.Width, w.renderer.config.Height)

	ticker := time.NewTicker(windowPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		img := w.renderer.Render()
		window.IMShow(img)
		img.Close()

		if key := window.WaitKey(1); key == keyEscape || key == 'q' {
			w.renderer.logger.Info("overlay closed")
			if w.OnClose != nil {
				w.OnClose()
			}
			return nil
		}
	}
}
