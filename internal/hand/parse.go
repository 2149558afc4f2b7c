package hand

import (
	"math"
	"strconv"
	"strings"
)

// Default remap constants from tracker pixel space to scene units.
const (
	DefaultOffset = 5.0
	DefaultScale  = 120.0
)

// minPayloadLen is the shortest payload that can hold anything besides brackets.
const minPayloadLen = 3

// Projector remaps tracker coordinates into scene coordinates:
//
//	x' = -(K - x) / S
//	y' = y / S
//	z' = z / S
type Projector struct {
	K float64
	S float64
}

// DefaultProjector uses the remap constants the tracker script is calibrated for.
var DefaultProjector = Projector{K: DefaultOffset, S: DefaultScale}

// Project maps one tracker-space triple to a scene-space keypoint.
func (p Projector) Project(x, y, z float64) Point3D {
	s := p.S
	if s == 0 {
		s = DefaultScale
	}
	return Point3D{
		X: -(p.K - x) / s,
		Y: y / s,
		Z: z / s,
	}
}

// ParseResult classifies the outcome of a parse.
type ParseResult int

const (
	// ResultOK means at least one hand was recovered.
	ResultOK ParseResult = iota
	// ResultEmpty means the payload was well formed but held no complete hand.
	ResultEmpty
	// ResultMalformed means the payload was too short or had a bad token.
	ResultMalformed
)

// String returns the metric label for the result.
func (r ParseResult) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultEmpty:
		return "empty"
	default:
		return "malformed"
	}
}

// ParsePayload parses a raw datagram such as "[1.0, 2.0, 3.0, ...]" using the
// default projector.
func ParsePayload(raw string) Frame {
	f, _ := DefaultProjector.ParsePayloadResult(raw)
	return f
}

// Parse parses a comma-separated body whose brackets were already stripped
// using the default projector.
func Parse(body string) Frame {
	f, _ := DefaultProjector.ParseResult(body)
	return f
}

// ParsePayload strips the outer brackets of raw and parses the remaining body.
func (p Projector) ParsePayload(raw string) Frame {
	f, _ := p.ParsePayloadResult(raw)
	return f
}

// Parse parses a bracket-less body. It never fails: bad input yields an empty frame.
func (p Projector) Parse(body string) Frame {
	f, _ := p.ParseResult(body)
	return f
}

// ParsePayloadResult is ParsePayload that also reports how the parse went.
func (p Projector) ParsePayloadResult(raw string) (Frame, ParseResult) {
	raw = strings.TrimSpace(raw)
	if len(raw) < minPayloadLen {
		return Frame{}, ResultMalformed
	}
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	return p.ParseResult(raw)
}

// ParseResult is Parse that also reports how the parse went.
//
// Tokens are consumed three at a time; a partial trailing triple is dropped.
// Keypoints are grouped in blocks of 21: the first block is the right hand,
// the second the left hand, anything after that is ignored. Only the tokens
// that end up in a keypoint are checked, so trailing data never voids the
// hands before it. A body without a single complete triple is checked whole.
func (p Projector) ParseResult(body string) (Frame, ParseResult) {
	body = strings.TrimSpace(body)
	if len(body) < minPayloadLen {
		return Frame{}, ResultMalformed
	}

	tokens := strings.Split(body, ",")
	usable := len(tokens) - len(tokens)%3
	if limit := NumKeypoints * 3; usable > limit {
		usable = limit
	}
	checked := tokens[:usable]
	if usable == 0 {
		checked = tokens
	}

	values := make([]float64, 0, usable)
	for _, tok := range checked {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Frame{}, ResultMalformed
		}
		if len(values) < usable {
			values = append(values, v)
		}
	}

	points := make([]Point3D, 0, len(values)/3)
	for i := 0; i+2 < len(values); i += 3 {
		points = append(points, p.Project(values[i], values[i+1], values[i+2]))
	}

	var f Frame
	if len(points) >= NumLandmarks {
		f.Right = handFrom(points[:NumLandmarks])
	}
	if len(points) >= 2*NumLandmarks {
		f.Left = handFrom(points[NumLandmarks : 2*NumLandmarks])
	}

	if f.Empty() {
		return f, ResultEmpty
	}
	return f, ResultOK
}

// Unproject maps a scene-space keypoint back to tracker space.
func (p Projector) Unproject(pt Point3D) (x, y, z float64) {
	s := p.S
	if s == 0 {
		s = DefaultScale
	}
	return pt.X*s + p.K, pt.Y * s, pt.Z * s
}

// Encode renders hands as a tracker payload, the inverse of ParsePayload.
func (p Projector) Encode(hands ...*Hand) string {
	var b strings.Builder
	b.WriteByte('[')
	first := true
	for _, h := range hands {
		if h == nil {
			continue
		}
		for _, pt := range h.Points {
			x, y, z := p.Unproject(pt)
			for _, v := range [3]float64{x, y, z} {
				if !first {
					b.WriteString(", ")
				}
				first = false
				b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
	}
	b.WriteByte(']')
	return b.String()
}

func handFrom(points []Point3D) *Hand {
	h := &Hand{}
	copy(h.Points[:], points)
	return h
}
