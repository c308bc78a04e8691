package detector

import (
	"errors"
	"math"
	"testing"
)

func planar(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestFixtures_Complete(t *testing.T) {
	fixtures := map[string]HandLandmarks{
		"open palm": OpenPalmLandmarks(),
		"fist":      FistLandmarks(),
		"pinch":     PinchSpreadLandmarks(0.4),
	}

	for name, hand := range fixtures {
		if !hand.Complete() {
			t.Errorf("%s fixture has %d points, want %d", name, len(hand.Points), NumLandmarks)
		}
	}

	short := HandLandmarks{Points: make([]Point3D, 10)}
	if short.Complete() {
		t.Error("a 10-point hand must not report Complete")
	}
}

func TestFistLandmarks_FingersFolded(t *testing.T) {
	hand := FistLandmarks()
	wrist := hand.Points[Wrist]

	pairs := [][2]int{
		{IndexTip, IndexPIP},
		{MiddleTip, MiddlePIP},
		{RingTip, RingPIP},
		{PinkyTip, PinkyPIP},
	}
	for _, pair := range pairs {
		tip := planar(wrist, hand.Points[pair[0]])
		pip := planar(wrist, hand.Points[pair[1]])
		if tip >= pip {
			t.Errorf("landmark %d: tip distance %v not inside PIP distance %v", pair[0], tip, pip)
		}
	}
}

func TestOpenPalmLandmarks_FingersExtended(t *testing.T) {
	hand := OpenPalmLandmarks()
	wrist := hand.Points[Wrist]

	pairs := [][2]int{
		{IndexTip, IndexPIP},
		{MiddleTip, MiddlePIP},
		{RingTip, RingPIP},
		{PinkyTip, PinkyPIP},
	}
	for _, pair := range pairs {
		tip := planar(wrist, hand.Points[pair[0]])
		pip := planar(wrist, hand.Points[pair[1]])
		if tip <= pip {
			t.Errorf("landmark %d: tip distance %v not beyond PIP distance %v", pair[0], tip, pip)
		}
	}
}

func TestPinchSpreadLandmarks_ExactSpread(t *testing.T) {
	for _, spread := range []float64{0.1, 0.3, 0.5} {
		hand := PinchSpreadLandmarks(spread)
		got := planar(hand.Points[ThumbTip], hand.Points[IndexTip])
		if math.Abs(got-spread) > 1e-9 {
			t.Errorf("thumb-index spread = %v, want %v", got, spread)
		}
	}
}

func TestTwoHandsApart_WristSpan(t *testing.T) {
	hands := TwoHandsApart(0.6)
	if len(hands) != 2 {
		t.Fatalf("got %d hands, want 2", len(hands))
	}
	got := planar(hands[0].Points[Wrist], hands[1].Points[Wrist])
	if math.Abs(got-0.6) > 1e-9 {
		t.Errorf("wrist span = %v, want 0.6", got)
	}
	if hands[0].Handedness == hands[1].Handedness {
		t.Error("expected one left and one right hand")
	}
}

func TestMockDetector_Hands(t *testing.T) {
	m := NewMockDetector()

	hands, err := m.Detect(nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(hands) != 0 {
		t.Errorf("fresh mock returned %d hands, want 0", len(hands))
	}

	m.SetHands([]HandLandmarks{FistLandmarks()})
	hands, err = m.Detect(nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(hands) != 1 {
		t.Errorf("got %d hands, want 1", len(hands))
	}
}

func TestMockDetector_ScriptCycles(t *testing.T) {
	m := NewMockDetector()
	m.SetScript([][]HandLandmarks{
		{OpenPalmLandmarks()},
		{FistLandmarks()},
		nil,
	})

	wantLens := []int{1, 1, 0, 1, 1, 0}
	for i, want := range wantLens {
		hands, err := m.Detect(nil)
		if err != nil {
			t.Fatalf("Detect() call %d error = %v", i, err)
		}
		if len(hands) != want {
			t.Errorf("call %d: got %d hands, want %d", i, len(hands), want)
		}
	}
}

func TestMockDetector_Error(t *testing.T) {
	m := NewMockDetector()
	wantErr := errors.New("detector offline")
	m.SetError(wantErr)

	if _, err := m.Detect(nil); !errors.Is(err, wantErr) {
		t.Errorf("Detect() error = %v, want %v", err, wantErr)
	}
}
