package hand

// img converts normalized image coordinates (origin top-left, y down) into
// scene coordinates (y up) for building preset hands.
func img(x, y, z float64) Point3D {
	return Point3D{X: x * 10, Y: (1 - y) * 6, Z: z * 10}
}

// ThumbsUp returns a preset hand with the thumb extended upward while the
// other fingers are curled.
func ThumbsUp() *Hand {
	h := &Hand{}

	h.Points[Wrist] = img(0.5, 0.8, 0.0)

	h.Points[ThumbCMC] = img(0.55, 0.75, 0.0)
	h.Points[ThumbMCP] = img(0.58, 0.65, 0.0)
	h.Points[ThumbIP] = img(0.58, 0.50, 0.0)
	h.Points[ThumbTip] = img(0.58, 0.35, 0.0)

	h.Points[IndexMCP] = img(0.55, 0.70, -0.02)
	h.Points[IndexPIP] = img(0.55, 0.68, -0.05)
	h.Points[IndexDIP] = img(0.52, 0.70, -0.04)
	h.Points[IndexTip] = img(0.50, 0.72, -0.02)

	h.Points[MiddleMCP] = img(0.50, 0.68, -0.02)
	h.Points[MiddlePIP] = img(0.50, 0.66, -0.05)
	h.Points[MiddleDIP] = img(0.47, 0.68, -0.04)
	h.Points[MiddleTip] = img(0.45, 0.70, -0.02)

	h.Points[RingMCP] = img(0.45, 0.70, -0.02)
	h.Points[RingPIP] = img(0.45, 0.68, -0.05)
	h.Points[RingDIP] = img(0.42, 0.70, -0.04)
	h.Points[RingTip] = img(0.40, 0.72, -0.02)

	h.Points[PinkyMCP] = img(0.40, 0.72, -0.02)
	h.Points[PinkyPIP] = img(0.40, 0.70, -0.05)
	h.Points[PinkyDIP] = img(0.37, 0.72, -0.04)
	h.Points[PinkyTip] = img(0.35, 0.74, -0.02)

	return h
}

// OpenPalm returns a preset hand with all fingers extended and spread.
func OpenPalm() *Hand {
	h := &Hand{}

	h.Points[Wrist] = img(0.5, 0.8, 0.0)

	h.Points[ThumbCMC] = img(0.55, 0.75, 0.02)
	h.Points[ThumbMCP] = img(0.62, 0.70, 0.03)
	h.Points[ThumbIP] = img(0.68, 0.65, 0.03)
	h.Points[ThumbTip] = img(0.73, 0.60, 0.03)

	h.Points[IndexMCP] = img(0.55, 0.68, 0.0)
	h.Points[IndexPIP] = img(0.57, 0.55, 0.0)
	h.Points[IndexDIP] = img(0.58, 0.45, 0.0)
	h.Points[IndexTip] = img(0.58, 0.35, 0.0)

	h.Points[MiddleMCP] = img(0.50, 0.66, 0.0)
	h.Points[MiddlePIP] = img(0.50, 0.52, 0.0)
	h.Points[MiddleDIP] = img(0.50, 0.40, 0.0)
	h.Points[MiddleTip] = img(0.50, 0.28, 0.0)

	h.Points[RingMCP] = img(0.45, 0.68, 0.0)
	h.Points[RingPIP] = img(0.43, 0.55, 0.0)
	h.Points[RingDIP] = img(0.42, 0.45, 0.0)
	h.Points[RingTip] = img(0.42, 0.35, 0.0)

	h.Points[PinkyMCP] = img(0.40, 0.70, 0.0)
	h.Points[PinkyPIP] = img(0.37, 0.60, 0.0)
	h.Points[PinkyDIP] = img(0.35, 0.50, 0.0)
	h.Points[PinkyTip] = img(0.34, 0.42, 0.0)

	return h
}

// Peace returns a preset hand with index and middle fingers raised in a V
// and the ring and pinky fingers folded.
func Peace() *Hand {
	h := OpenPalm()

	h.Points[ThumbIP] = img(0.54, 0.68, 0.0)
	h.Points[ThumbTip] = img(0.50, 0.66, 0.0)

	h.Points[IndexDIP] = img(0.62, 0.45, 0.0)
	h.Points[IndexTip] = img(0.65, 0.35, 0.0)

	h.Points[RingPIP] = img(0.45, 0.64, -0.04)
	h.Points[RingDIP] = img(0.46, 0.68, -0.03)
	h.Points[RingTip] = img(0.47, 0.70, -0.02)

	h.Points[PinkyPIP] = img(0.40, 0.66, -0.04)
	h.Points[PinkyDIP] = img(0.41, 0.70, -0.03)
	h.Points[PinkyTip] = img(0.42, 0.72, -0.02)

	return h
}

// Fist returns a preset hand with every fingertip folded onto the palm.
func Fist() *Hand {
	h := &Hand{}

	h.Points[Wrist] = Point3D{X: 5.0, Y: 1.2, Z: 0}

	h.Points[ThumbCMC] = Point3D{X: 5.3, Y: 1.4, Z: 0}
	h.Points[ThumbMCP] = Point3D{X: 5.5, Y: 1.7, Z: 0}
	h.Points[ThumbIP] = Point3D{X: 5.4, Y: 1.6, Z: 0.1}
	h.Points[ThumbTip] = Point3D{X: 5.2, Y: 1.3, Z: 0.1}

	h.Points[IndexMCP] = Point3D{X: 5.3, Y: 2.0, Z: 0}
	h.Points[IndexPIP] = Point3D{X: 5.3, Y: 2.1, Z: 0.3}
	h.Points[IndexDIP] = Point3D{X: 5.2, Y: 1.7, Z: 0.3}
	h.Points[IndexTip] = Point3D{X: 5.1, Y: 1.4, Z: 0.1}

	h.Points[MiddleMCP] = Point3D{X: 5.0, Y: 2.1, Z: 0}
	h.Points[MiddlePIP] = Point3D{X: 5.0, Y: 2.2, Z: 0.3}
	h.Points[MiddleDIP] = Point3D{X: 5.0, Y: 1.8, Z: 0.3}
	h.Points[MiddleTip] = Point3D{X: 5.0, Y: 1.45, Z: 0.1}

	h.Points[RingMCP] = Point3D{X: 4.7, Y: 2.0, Z: 0}
	h.Points[RingPIP] = Point3D{X: 4.7, Y: 2.1, Z: 0.3}
	h.Points[RingDIP] = Point3D{X: 4.8, Y: 1.7, Z: 0.3}
	h.Points[RingTip] = Point3D{X: 4.9, Y: 1.4, Z: 0.1}

	h.Points[PinkyMCP] = Point3D{X: 4.5, Y: 1.8, Z: 0}
	h.Points[PinkyPIP] = Point3D{X: 4.5, Y: 1.9, Z: 0.2}
	h.Points[PinkyDIP] = Point3D{X: 4.6, Y: 1.6, Z: 0.2}
	h.Points[PinkyTip] = Point3D{X: 4.8, Y: 1.3, Z: 0.1}

	return h
}
