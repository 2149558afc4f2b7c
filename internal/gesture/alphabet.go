package gesture

import (
	"time"

	"github.com/ayusman/fingerspell/internal/hand"
)

// Built-in plan names.
const (
	PlanAlphabet = "alphabet"
	PlanPractice = "practice"
)

// Right-hand (dominant) landmark ids.
const (
	rThumbIP   = hand.ThumbIP
	rThumbTip  = hand.ThumbTip
	rIndexMCP  = hand.IndexMCP
	rIndexPIP  = hand.IndexPIP
	rIndexDIP  = hand.IndexDIP
	rIndexTip  = hand.IndexTip
	rMiddleMCP = hand.MiddleMCP
	rMiddlePIP = hand.MiddlePIP
	rMiddleDIP = hand.MiddleDIP
	rMiddleTip = hand.MiddleTip
	rRingMCP   = hand.RingMCP
	rRingPIP   = hand.RingPIP
	rRingDIP   = hand.RingDIP
	rRingTip   = hand.RingTip
	rPinkyDIP  = hand.PinkyDIP
	rPinkyTip  = hand.PinkyTip
)

// Left-hand (passive) landmark ids in the global keypoint space.
const (
	lWrist     = hand.NumLandmarks + hand.Wrist
	lThumbMCP  = hand.NumLandmarks + hand.ThumbMCP
	lThumbTip  = hand.NumLandmarks + hand.ThumbTip
	lIndexMCP  = hand.NumLandmarks + hand.IndexMCP
	lIndexDIP  = hand.NumLandmarks + hand.IndexDIP
	lIndexTip  = hand.NumLandmarks + hand.IndexTip
	lMiddleDIP = hand.NumLandmarks + hand.MiddleDIP
	lMiddleTip = hand.NumLandmarks + hand.MiddleTip
	lRingDIP   = hand.NumLandmarks + hand.RingDIP
	lRingTip   = hand.NumLandmarks + hand.RingTip
	lPinkyMCP  = hand.NumLandmarks + hand.PinkyMCP
	lPinkyDIP  = hand.NumLandmarks + hand.PinkyDIP
	lPinkyTip  = hand.NumLandmarks + hand.PinkyTip
)

// pinchDist is how close thumb and index tips must be for C, D and Z.
const pinchDist = 1.0

// ThumbsUp is the start trigger: right thumb tip above every other right fingertip.
func ThumbsUp() Rule {
	return Above(rThumbTip, rIndexTip, rMiddleTip, rRingTip, rPinkyTip)
}

// Alphabet returns the British Sign Language two-handed fingerspelling plan, A to Z.
//
// Several letters share a rule (B/E, C/D/Z, K/W/X, M/N/V) and cannot be told
// apart; Bank.Duplicates reports them.
func Alphabet() Plan {
	trigger := ThumbsUp()

	pinch := Within(rThumbTip, rIndexTip, pinchDist)
	palm := []int{rIndexMCP, rMiddleMCP, rIndexPIP, rMiddlePIP, rRingMCP, rRingPIP}

	return Plan{
		Name:        PlanAlphabet,
		Description: "BSL two-handed fingerspelling, A to Z",
		Trigger:     &trigger,
		Gestures: []Gesture{
			{Name: "A", Rule: Touch(rIndexTip, lThumbTip)},
			{Name: "B", Rule: Touch(rIndexTip, lIndexTip)},
			{Name: "C", Rule: pinch},
			{Name: "D", Rule: pinch},
			{Name: "E", Rule: Touch(rIndexTip, lIndexTip)},
			{Name: "F", Rule: All(
				Touch(rIndexDIP, lIndexDIP),
				Touch(rMiddleDIP, lMiddleDIP),
			)},
			{Name: "G", Rule: Touch(rThumbTip, rThumbIP)},
			{Name: "H", Rule: All(
				Any(Touch(rIndexDIP, lIndexDIP), Touch(rIndexTip, lIndexTip)),
				Any(Touch(rMiddleDIP, lMiddleDIP), Touch(rMiddleTip, lMiddleTip)),
				Any(Touch(rRingDIP, lRingDIP), Touch(rRingTip, lRingTip)),
			)},
			{Name: "I", Rule: Touch(rIndexTip, lMiddleTip)},
			{Name: "J", Rule: Touch(rIndexTip, rMiddleTip)},
			{Name: "K", Rule: Touch(rIndexDIP, lIndexDIP)},
			{Name: "L", Rule: TouchAny(rIndexTip, rRingDIP, rMiddleMCP, rIndexPIP, rMiddlePIP, rRingMCP, rRingPIP)},
			{Name: "M", Rule: Any(TouchAny(rIndexTip, palm...), TouchAny(rMiddleTip, palm...))},
			{Name: "N", Rule: Any(TouchAny(rIndexTip, palm...), TouchAny(rMiddleTip, palm...))},
			{Name: "O", Rule: Touch(rIndexTip, lRingTip)},
			{Name: "P", Rule: Any(Touch(rIndexTip, lIndexTip), Touch(rMiddleTip, lIndexTip))},
			{Name: "Q", Rule: Any(Touch(rIndexTip, lThumbMCP), Touch(rIndexDIP, lThumbMCP))},
			{Name: "R", Rule: Any(Touch(rIndexMCP, lPinkyMCP), Touch(rIndexPIP, lPinkyMCP))},
			{Name: "S", Rule: Touch(rPinkyDIP, lPinkyDIP)},
			{Name: "T", Rule: Touch(rIndexTip, lWrist)},
			{Name: "U", Rule: Touch(rIndexTip, lPinkyTip)},
			{Name: "V", Rule: Any(TouchAny(rIndexTip, palm...), TouchAny(rMiddleTip, palm...))},
			{Name: "W", Rule: Touch(rIndexDIP, lIndexDIP)},
			{Name: "X", Rule: Touch(rIndexDIP, lIndexDIP)},
			{Name: "Y", Rule: Touch(rIndexTip, lIndexMCP)},
			{Name: "Z", Rule: pinch},
		},
		Timing: Timing{
			Hold:     3 * time.Second,
			Feedback: 5 * time.Second,
			Overrides: map[string]time.Duration{
				"H": 0,
				"J": 0,
			},
		},
	}
}

// Practice returns the warm-up plan: thumbs up, peace, fist. It starts
// without a trigger and advances as soon as a gesture is confirmed.
func Practice() Plan {
	const (
		spread = 0.4
		curl   = 0.4
	)

	fist := make([]Rule, 0, 5)
	for _, tip := range hand.Tips() {
		fist = append(fist, Within(tip, hand.Wrist, curl))
	}

	return Plan{
		Name:        PlanPractice,
		Description: "Warm-up: thumbs up, peace, fist",
		Gestures: []Gesture{
			{Name: "ThumbsUp", Rule: ThumbsUp()},
			{Name: "Peace", Rule: All(
				Above(rIndexTip, rRingTip, rPinkyTip),
				Above(rMiddleTip, rRingTip, rPinkyTip),
				Apart(rIndexTip, rMiddleTip, spread),
			)},
			{Name: "Fist", Rule: All(fist...)},
		},
		Timing: Timing{
			Hold:     5 * time.Second,
			Feedback: 0,
		},
	}
}
