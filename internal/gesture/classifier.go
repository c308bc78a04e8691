// Package gesture reduces noisy per-frame hand landmarks into a compact
// discrete state that drives the particle formation.
package gesture

import (
	"errors"
	"math"

	"github.com/soumik/cardioid/internal/detector"
)

// ErrInvalidLandmarkSet is returned when a hand carries fewer landmark
// points than the anatomical indices require. Callers treat the frame as
// having no gesture.
var ErrInvalidLandmarkSet = errors.New("invalid landmark set")

// Kind identifies the gesture variant. Expand and Contract are mutually
// exclusive; the zero value is Idle.
type Kind int

const (
	// Idle means no deforming gesture is active.
	Idle Kind = iota
	// Expand pushes particles radially away from the origin.
	Expand
	// Contract pulls particles toward the origin.
	Contract
)

// String returns the lowercase name of the gesture kind.
func (k Kind) String() string {
	switch k {
	case Expand:
		return "expand"
	case Contract:
		return "contract"
	default:
		return "idle"
	}
}

// State is the classification of a single landmark frame. It is recomputed
// fully every frame and carries no memory of prior frames; any smoothing is
// applied downstream by the simulation.
//
// Strength is not clamped to [0,1] for the one-hand expand branch; the
// simulation scales forces proportionally to whatever value arrives.
type State struct {
	Kind          Kind
	Strength      float64
	RotationAngle float64 // radians, valid only when HasRotation
	HasRotation   bool
}

// Classification thresholds in normalized image units.
const (
	// twoHandSpan is the wrist-to-wrist distance beyond which two open
	// hands read as an expand gesture.
	twoHandSpan = 0.5
	// pinchSpan is the thumb-to-index distance beyond which a single
	// open hand reads as an expand gesture.
	pinchSpan = 0.25
	// foldedForFist is how many of the four non-thumb fingers must be
	// folded for a hand to read as a fist.
	foldedForFist = 3
)

var (
	fingerTips = [4]int{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	fingerPIPs = [4]int{detector.IndexPIP, detector.MiddlePIP, detector.RingPIP, detector.PinkyPIP}
)

// Classify maps zero, one, or two hands to a gesture state.
//
// Rules are evaluated in strict priority order: no hands is Idle, a fist on
// either hand is Contract, then two-hand wrist span or one-hand pinch span
// is Expand, otherwise Idle. Rotation is derived from the first hand's
// wrist regardless of which branch wins. The fist-before-expand ordering is
// load-bearing: a fist must never read as a narrow pinch.
func Classify(hands []detector.HandLandmarks) (State, error) {
	if len(hands) == 0 {
		return State{}, nil
	}

	for i := range hands {
		if !hands[i].Complete() {
			return State{}, ErrInvalidLandmarkSet
		}
	}

	wrist := hands[0].Points[detector.Wrist]
	st := State{
		RotationAngle: (wrist.X - 0.5) * 2 * math.Pi,
		HasRotation:   true,
	}

	if isFist(&hands[0]) || (len(hands) > 1 && isFist(&hands[1])) {
		st.Kind = Contract
		st.Strength = 1.0
		return st, nil
	}

	if len(hands) > 1 {
		span := planarDistance(wrist, hands[1].Points[detector.Wrist])
		if span > twoHandSpan {
			st.Kind = Expand
			st.Strength = math.Min((span-twoHandSpan)*2, 1)
		}
		return st, nil
	}

	span := planarDistance(hands[0].Points[detector.ThumbTip], hands[0].Points[detector.IndexTip])
	if span > pinchSpan {
		st.Kind = Expand
		st.Strength = (span - pinchSpan) * 3
	}
	return st, nil
}

// isFist reports whether at least foldedForFist of the four non-thumb
// fingers have their tip closer to the wrist than their PIP joint.
func isFist(h *detector.HandLandmarks) bool {
	wrist := h.Points[detector.Wrist]

	folded := 0
	for i := range fingerTips {
		tip := planarDistance(wrist, h.Points[fingerTips[i]])
		pip := planarDistance(wrist, h.Points[fingerPIPs[i]])
		if tip < pip {
			folded++
		}
	}
	return folded >= foldedForFist
}

// planarDistance is the Euclidean distance between two landmarks in the
// image plane; depth is ignored throughout classification.
func planarDistance(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
