package hand

// Frame is one snapshot of up to two tracked hands. A nil hand is absent.
type Frame struct {
	Right *Hand `json:"right,omitempty"`
	Left  *Hand `json:"left,omitempty"`
}

// Hands returns how many hand records are present.
func (f Frame) Hands() int {
	n := 0
	if f.Right != nil {
		n++
	}
	if f.Left != nil {
		n++
	}
	return n
}

// Empty reports whether the frame carries no hands.
func (f Frame) Empty() bool {
	return f.Right == nil && f.Left == nil
}

// Point resolves a global keypoint id: 0..20 address the right hand and
// 21..41 the left hand. ok is false when the id is out of range or its hand
// was not tracked in this frame.
func (f Frame) Point(id int) (Point3D, bool) {
	switch {
	case id < 0 || id >= NumKeypoints:
		return Point3D{}, false
	case id < NumLandmarks:
		if f.Right == nil {
			return Point3D{}, false
		}
		return f.Right.Points[id], true
	default:
		if f.Left == nil {
			return Point3D{}, false
		}
		return f.Left.Points[id-NumLandmarks], true
	}
}
