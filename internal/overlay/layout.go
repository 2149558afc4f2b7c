package overlay

import (
	"image"
	"math"

	"github.com/ayusman/fingerspell/internal/hand"
)

// Tracker image size the keypoints are measured in.
const (
	DefaultSourceWidth  = 1280
	DefaultSourceHeight = 720
)

// Layout maps scene-space keypoints onto the overlay canvas. Keypoints are
// projected back to tracker pixels, whose y axis points up, then scaled to
// the canvas.
type Layout struct {
	Width, Height             int
	SourceWidth, SourceHeight int
	Projector                 hand.Projector
}

// ToPixel returns the canvas position of pt.
func (l Layout) ToPixel(pt hand.Point3D) image.Point {
	x, y, _ := l.Projector.Unproject(pt)
	sw, sh := float64(l.SourceWidth), float64(l.SourceHeight)
	return image.Point{
		X: int(math.Round(x * float64(l.Width) / sw)),
		Y: int(math.Round((sh - y) * float64(l.Height) / sh)),
	}
}

// Segments returns the skeleton lines of h in canvas coordinates.
func (l Layout) Segments(h *hand.Hand) [][2]image.Point {
	if h == nil {
		return nil
	}
	out := make([][2]image.Point, len(hand.Bones))
	for i, b := range hand.Bones {
		out[i] = [2]image.Point{l.ToPixel(h.Points[b[0]]), l.ToPixel(h.Points[b[1]])}
	}
	return out
}

// ProgressBar returns the bar outline and its filled part for fraction.
func (l Layout) ProgressBar(fraction float64) (outline, fill image.Rectangle) {
	margin := l.Width / 20
	height := max(l.Height/30, 6)
	outline = image.Rect(margin, l.Height-margin-height, l.Width-margin, l.Height-margin)

	fraction = math.Max(0, math.Min(1, fraction))
	w := int(math.Round(float64(outline.Dx()) * fraction))
	fill = image.Rect(outline.Min.X, outline.Min.Y, outline.Min.X+w, outline.Max.Y)
	return outline, fill
}
