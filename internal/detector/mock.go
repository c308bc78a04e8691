package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is an in-process implementation of the Detector interface.
// Tests preset its output directly; the --mock run mode feeds it a looping
// script of hands so the formation can be driven without a camera.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	script [][]HandLandmarks
	cursor int
	err    error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.script = nil
}

// SetScript sets a sequence of per-frame hand sets that Detect cycles
// through, one entry per call.
func (m *MockDetector) SetScript(script [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = script
	m.cursor = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands, the next script entry, or the
// pre-configured error. The frame is ignored.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) > 0 {
		hands := m.script[m.cursor%len(m.script)]
		m.cursor++
		return hands, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fixture geometry. Fingers radiate from the wrist toward the top of the
// image (y decreases upward in normalized image coordinates); joint
// positions are placed at increasing radii along each finger direction so
// the fist heuristic (tip closer to the wrist than the PIP joint) holds or
// fails by construction.
var fingerDirs = [4][2]float64{
	{-0.196, -0.981}, // index
	{0.0, -1.0},      // middle
	{0.196, -0.981},  // ring
	{0.38, -0.925},   // pinky
}

var fingerJoints = [4][4]int{
	{IndexMCP, IndexPIP, IndexDIP, IndexTip},
	{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	{RingMCP, RingPIP, RingDIP, RingTip},
	{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

// Joint radii from the wrist along a finger direction.
var (
	extendedRadii = [4]float64{0.10, 0.16, 0.22, 0.28}
	foldedRadii   = [4]float64{0.10, 0.16, 0.12, 0.08}
)

func buildHand(wx, wy float64, radii [4]float64) HandLandmarks {
	h := HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: wx, Y: wy}

	// Relaxed thumb resting near the palm, inside the pinch threshold.
	h.Points[ThumbCMC] = Point3D{X: wx + 0.04, Y: wy - 0.04}
	h.Points[ThumbMCP] = Point3D{X: wx + 0.06, Y: wy - 0.07}
	h.Points[ThumbIP] = Point3D{X: wx + 0.04, Y: wy - 0.10}
	h.Points[ThumbTip] = Point3D{X: wx + 0.02, Y: wy - 0.12}

	for f, joints := range fingerJoints {
		dir := fingerDirs[f]
		for j, idx := range joints {
			r := radii[j]
			h.Points[idx] = Point3D{X: wx + dir[0]*r, Y: wy + dir[1]*r}
		}
	}

	return h
}

// OpenPalmLandmarks returns a hand with all four non-thumb fingers
// extended and the thumb resting near the palm; the classifier reads
// this as Idle.
func OpenPalmLandmarks() HandLandmarks {
	return buildHand(0.5, 0.7, extendedRadii)
}

// FistLandmarks returns a hand with all four non-thumb fingertips curled
// inside their PIP joints; the classifier reads this as a fist.
func FistLandmarks() HandLandmarks {
	return buildHand(0.5, 0.7, foldedRadii)
}

// PinchSpreadLandmarks returns an open hand whose thumb tip has been moved
// so its planar distance from the index tip is exactly spread.
func PinchSpreadLandmarks(spread float64) HandLandmarks {
	h := OpenPalmLandmarks()
	tip := h.Points[IndexTip]
	h.Points[ThumbTip] = Point3D{X: tip.X + spread, Y: tip.Y}
	return h
}

// TwoHandsApart returns two open hands whose wrists are dist apart
// horizontally, centered in the frame.
func TwoHandsApart(dist float64) []HandLandmarks {
	left := buildHand(0.5-dist/2, 0.6, extendedRadii)
	left.Handedness = "Left"
	right := buildHand(0.5+dist/2, 0.6, extendedRadii)
	return []HandLandmarks{left, right}
}
