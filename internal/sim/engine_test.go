package sim

import (
	"math"
	"testing"

	"github.com/soumik/cardioid/internal/gesture"
)

const dt = 1.0 / 60

// quietParams returns a tuning with stochastic forcing disabled so tests
// observe pure spring/gesture dynamics.
func quietParams() Params {
	p := DefaultParams()
	p.NoiseStrength = 0
	return p
}

func newTestEngine(t *testing.T, n int) *Engine {
	t.Helper()
	return New(n, 1, quietParams())
}

func TestNew_PositionsStartAtHome(t *testing.T) {
	e := newTestEngine(t, 100)

	if e.ActiveCount() != 100 {
		t.Fatalf("ActiveCount() = %d, want 100", e.ActiveCount())
	}
	if e.MaxCount() != 100 {
		t.Fatalf("MaxCount() = %d, want 100", e.MaxCount())
	}

	pos := e.Positions()
	home := e.Homes()
	if len(pos) != 300 || len(home) != 300 {
		t.Fatalf("buffer lengths = %d, %d, want 300", len(pos), len(home))
	}
	for i := range pos {
		if pos[i] != home[i] {
			t.Fatalf("position[%d] = %v, home = %v; no spawn-in expected", i, pos[i], home[i])
		}
	}
}

func TestSetActiveCount_Clamps(t *testing.T) {
	e := newTestEngine(t, 50)

	e.SetActiveCount(-5)
	if e.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d after negative set, want 0", e.ActiveCount())
	}

	e.SetActiveCount(1000)
	if e.ActiveCount() != 50 {
		t.Errorf("ActiveCount() = %d after oversized set, want 50", e.ActiveCount())
	}

	e.SetActiveCount(20)
	if e.ActiveCount() != 20 {
		t.Errorf("ActiveCount() = %d, want 20", e.ActiveCount())
	}
}

func TestSetActiveCount_FreezesTail(t *testing.T) {
	e := newTestEngine(t, 40)

	// Shrink, then disturb the active prefix.
	e.SetActiveCount(10)
	for i := 0; i < 30; i++ {
		e.Step(dt, gesture.State{Kind: gesture.Expand, Strength: 1})
	}

	// Re-grow: the tail must come back exactly as it was frozen, which
	// for an untouched engine is the home position.
	e.SetActiveCount(40)
	pos := e.Positions()
	home := e.Homes()
	for i := 30; i < 120; i++ {
		if pos[i] != home[i] {
			t.Fatalf("frozen particle data changed at index %d: %v != %v", i, pos[i], home[i])
		}
	}

	// The active prefix did move.
	moved := false
	for i := 0; i < 30; i++ {
		if pos[i] != home[i] {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("active prefix did not move under an expand gesture")
	}
}

func TestReset_RegeneratesAndKeepsActiveCount(t *testing.T) {
	e := newTestEngine(t, 60)
	e.SetActiveCount(25)

	oldHome := append([]float64(nil), e.Homes()...)

	for i := 0; i < 20; i++ {
		e.Step(dt, gesture.State{Kind: gesture.Expand, Strength: 2})
	}

	e.Reset()

	if e.ActiveCount() != 25 {
		t.Errorf("ActiveCount() = %d after reset, want 25", e.ActiveCount())
	}

	pos := e.Positions()
	home := e.Homes()
	for i := range pos {
		if pos[i] != home[i] {
			t.Fatalf("position[%d] not seeded onto home after reset", i)
		}
	}

	// Sampling is stochastic, so the regenerated geometry differs.
	same := true
	for i := range home {
		if home[i] != oldHome[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("reset did not resample home targets")
	}

	// Momentum is cleared: an idle step from home moves only by the
	// spring's pulse correction, which is tiny.
	e.Step(dt, gesture.State{})
	if err := e.CheckFinite(); err != nil {
		t.Fatalf("CheckFinite() = %v", err)
	}
}

func TestStep_IdleConvergesToPulsedHome(t *testing.T) {
	e := newTestEngine(t, 50)

	// Kick the formation apart, then let the spring settle it.
	for i := 0; i < 30; i++ {
		e.Step(dt, gesture.State{Kind: gesture.Expand, Strength: 1})
	}
	kicked := meanHomeDistance(e)

	for i := 0; i < 4000; i++ {
		e.Step(dt, gesture.State{})
	}
	settled := meanHomeDistance(e)

	if settled >= kicked/4 {
		t.Errorf("mean home distance only fell from %v to %v", kicked, settled)
	}
	// The pulse keeps home targets oscillating within a few percent of
	// their rest magnitude, so settled distance stays small but nonzero.
	if settled > 2.5 {
		t.Errorf("settled mean home distance = %v, want < 2.5", settled)
	}
	if err := e.CheckFinite(); err != nil {
		t.Fatalf("CheckFinite() = %v", err)
	}
}

func meanHomeDistance(e *Engine) float64 {
	pos := e.Positions()
	home := e.Homes()
	var total float64
	n := len(pos) / 3
	for i := 0; i < n; i++ {
		b := 3 * i
		dx := pos[b] - home[b]
		dy := pos[b+1] - home[b+1]
		dz := pos[b+2] - home[b+2]
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total / float64(n)
}

func TestStep_ExpandPushesOutward(t *testing.T) {
	e := newTestEngine(t, 100)

	e.Step(dt, gesture.State{Kind: gesture.Expand, Strength: 1})

	pos := e.Positions()
	for i := 0; i < 100; i++ {
		b := 3 * i
		dot := e.vel[b]*pos[b] + e.vel[b+1]*pos[b+1] + e.vel[b+2]*pos[b+2]
		if dot <= 0 {
			t.Fatalf("particle %d: radial velocity %v not outward", i, dot)
		}
	}
}

func TestStep_ContractPullsInward(t *testing.T) {
	e := newTestEngine(t, 100)

	e.Step(dt, gesture.State{Kind: gesture.Contract, Strength: 1})

	pos := e.Positions()
	inward := 0
	for i := 0; i < 100; i++ {
		b := 3 * i
		dot := e.vel[b]*pos[b] + e.vel[b+1]*pos[b+1] + e.vel[b+2]*pos[b+2]
		if dot < 0 {
			inward++
		}
	}
	if inward != 100 {
		t.Errorf("%d of 100 particles moved inward, want all", inward)
	}
}

func TestStep_ColorTracksSpeed(t *testing.T) {
	p := quietParams()
	p.ColorLow = [3]float64{0.1, 0.2, 0.3}
	p.ColorHigh = [3]float64{0.9, 0.8, 0.7}
	e := New(50, 1, p)

	// At rest the speed is near zero, so colors sit near ColorLow.
	e.Step(dt, gesture.State{})
	col := e.Colors()
	for i := 0; i < 50; i++ {
		b := 3 * i
		if math.Abs(col[b]-p.ColorLow[0]) > 0.05 {
			t.Fatalf("particle %d: resting red = %v, want ~%v", i, col[b], p.ColorLow[0])
		}
	}

	// A violent expand saturates the interpolation factor, pinning the
	// color at ColorHigh exactly.
	for i := 0; i < 10; i++ {
		e.Step(dt, gesture.State{Kind: gesture.Expand, Strength: 20})
	}
	col = e.Colors()
	for i := 0; i < 50; i++ {
		b := 3 * i
		for ax := 0; ax < 3; ax++ {
			if math.Abs(col[b+ax]-p.ColorHigh[ax]) > 1e-12 {
				t.Fatalf("particle %d: saturated color axis %d = %v, want %v", i, ax, col[b+ax], p.ColorHigh[ax])
			}
		}
	}

	// Every component stays inside the [low, high] interval.
	for i := 0; i < 1000; i++ {
		e.Step(dt, gesture.State{})
	}
	col = e.Colors()
	for i := range col {
		lo := p.ColorLow[i%3]
		hi := p.ColorHigh[i%3]
		if col[i] < lo-1e-9 || col[i] > hi+1e-9 {
			t.Fatalf("color[%d] = %v outside [%v, %v]", i, col[i], lo, hi)
		}
	}
}

func TestStep_RotationSmoothing(t *testing.T) {
	e := newTestEngine(t, 1)

	target := math.Pi
	e.Step(dt, gesture.State{HasRotation: true, RotationAngle: target})
	if math.Abs(e.Rotation()-target*0.1) > 1e-9 {
		t.Errorf("rotation after one step = %v, want %v", e.Rotation(), target*0.1)
	}

	for i := 0; i < 200; i++ {
		e.Step(dt, gesture.State{HasRotation: true, RotationAngle: target})
	}
	if math.Abs(e.Rotation()-target) > 1e-6 {
		t.Errorf("rotation = %v, want converged to %v", e.Rotation(), target)
	}
}

func TestStep_IdleSpin(t *testing.T) {
	e := newTestEngine(t, 1)

	before := e.Rotation()
	for i := 0; i < 100; i++ {
		e.Step(dt, gesture.State{})
	}
	spun := e.Rotation() - before

	want := 100 * dt * 0.1
	if math.Abs(spun-want) > 1e-9 {
		t.Errorf("idle spin = %v over 100 steps, want %v", spun, want)
	}
}

func TestSetParams_ImmediateEffect(t *testing.T) {
	e := newTestEngine(t, 10)

	p := e.Params()
	p.PulseSpeed = 0
	p.SpringStrength = 0
	e.SetParams(p)

	// With no spring, no noise, and a frozen pulse, an idle step cannot
	// move anything.
	before := append([]float64(nil), e.Positions()...)
	e.Step(dt, gesture.State{})
	after := e.Positions()
	for i := range after {
		if after[i] != before[i] {
			t.Fatalf("position[%d] moved with all forces disabled", i)
		}
	}
}

func TestStep_OverUnityStrengthIsValid(t *testing.T) {
	// The classifier can emit strengths past 1; the engine must scale
	// forces proportionally and stay finite.
	e := newTestEngine(t, 50)

	for i := 0; i < 100; i++ {
		e.Step(dt, gesture.State{Kind: gesture.Expand, Strength: 5})
	}
	if err := e.CheckFinite(); err != nil {
		t.Fatalf("CheckFinite() = %v", err)
	}
}

func TestCheckFinite_Clean(t *testing.T) {
	e := newTestEngine(t, 10)
	if err := e.CheckFinite(); err != nil {
		t.Errorf("CheckFinite() = %v on a fresh engine", err)
	}
}
