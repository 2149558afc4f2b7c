// Package overlay draws the lesson preview: the tracked hand skeletons, the
// current target and its hold progress. The renderer is a feedback sink and
// serves JPEG snapshots for the HTTP stream.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/hand"
)

// Default canvas size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	colorBackground = gocv.NewScalar(24, 24, 24, 0)
	colorRight      = color.RGBA{R: 80, G: 200, B: 255, A: 255}
	colorLeft       = color.RGBA{R: 255, G: 170, B: 60, A: 255}
	colorText       = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	colorDim        = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	colorProgress   = color.RGBA{R: 90, G: 220, B: 120, A: 255}
)

// FrameSource provides the most recently evaluated frame. *app.App
// implements it.
type FrameSource interface {
	Frame() hand.Frame
}

// Config holds the renderer settings.
type Config struct {
	Width, Height             int
	SourceWidth, SourceHeight int
	Projector                 hand.Projector
	Frames                    FrameSource
	Logger                    *slog.Logger
}

type status struct {
	target    string
	index     int
	progress  float64
	last      string
	completed bool
}

// Renderer draws overlay images from the current frame and lesson feedback.
type Renderer struct {
	config Config
	layout Layout
	logger *slog.Logger

	mu     sync.Mutex
	status status
}

// New creates a new Renderer.
func New(config Config) (*Renderer, error) {
	if config.Frames == nil {
		return nil, errors.New("overlay: frame source is required")
	}
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = DefaultWidth, DefaultHeight
	}
	if config.SourceWidth <= 0 || config.SourceHeight <= 0 {
		config.SourceWidth, config.SourceHeight = DefaultSourceWidth, DefaultSourceHeight
	}
	if config.Projector == (hand.Projector{}) {
		config.Projector = hand.DefaultProjector
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Renderer{
		config: config,
		layout: Layout{
			Width:        config.Width,
			Height:       config.Height,
			SourceWidth:  config.SourceWidth,
			SourceHeight: config.SourceHeight,
			Projector:    config.Projector,
		},
		logger: config.Logger.With("component", "overlay"),
	}, nil
}

func (r *Renderer) OnProgress(fraction float64) {
	r.mu.Lock()
	r.status.progress = fraction
	r.mu.Unlock()
}

func (r *Renderer) OnGestureConfirmed(name string) {
	r.mu.Lock()
	r.status.last = name
	r.mu.Unlock()
}

func (r *Renderer) OnSessionCompleted() {
	r.mu.Lock()
	r.status.completed = true
	r.mu.Unlock()
}

func (r *Renderer) OnTargetChanged(name string, index int) {
	r.mu.Lock()
	r.status = status{target: name, index: index, last: r.status.last}
	r.mu.Unlock()
}

func (r *Renderer) snapshot() status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Render draws the current overlay into a new Mat.
// The caller is responsible for closing the returned Mat.
func (r *Renderer) Render() gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(colorBackground, r.config.Height, r.config.Width, gocv.MatTypeCV8UC3)

	frame := r.config.Frames.Frame()
	r.drawHand(&img, frame.Right, colorRight)
	r.drawHand(&img, frame.Left, colorLeft)
	r.drawStatus(&img, r.snapshot())

	return img
}

// JPEG renders the overlay and encodes it as JPEG.
func (r *Renderer) JPEG() ([]byte, error) {
	img := r.Render()
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (r *Renderer) drawHand(img *gocv.Mat, h *hand.Hand, c color.RGBA) {
	if h == nil {
		return
	}
	for _, seg := range r.layout.Segments(h) {
		gocv.Line(img, seg[0], seg[1], c, 2)
	}
	for _, pt := range h.Points {
		gocv.Circle(img, r.layout.ToPixel(pt), 4, c, -1)
	}
}

func (r *Renderer) drawStatus(img *gocv.Mat, s status) {
	margin := r.config.Width / 20

	switch {
	case s.completed:
		gocv.PutText(img, "Lesson complete", image.Pt(margin, margin*2), gocv.FontHersheySimplex, 1.2, colorProgress, 2)
	case s.target != "":
		gocv.PutText(img, s.target, image.Pt(margin, margin*3), gocv.FontHersheyDuplex, 3, colorText, 4)
		label := fmt.Sprintf("sign %d", s.index+1)
		gocv.PutText(img, label, image.Pt(margin, margin*4), gocv.FontHersheySimplex, 0.6, colorDim, 1)
	default:
		gocv.PutText(img, "Show a thumbs up to start", image.Pt(margin, margin*2), gocv.FontHersheySimplex, 0.8, colorDim, 2)
	}

	if s.last != "" {
		text := "last: " + s.last
		gocv.PutText(img, text, image.Pt(r.config.Width-margin*5, margin*2), gocv.FontHersheySimplex, 0.7, colorDim, 2)
	}

	outline, fill := r.layout.ProgressBar(s.progress)
	gocv.Rectangle(img, outline, colorDim, 1)
	if !fill.Empty() {
		gocv.Rectangle(img, fill, colorProgress, -1)
	}
}
