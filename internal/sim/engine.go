// Package sim owns the particle buffers of the heart formation and advances
// them each frame under spring, gesture, and stochastic forces.
package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/soumik/cardioid/internal/gesture"
	"github.com/soumik/cardioid/internal/heart"
)

// Params is the live-tunable simulation configuration. Updates between
// steps take effect on the next step.
type Params struct {
	ColorLow       [3]float64 `json:"colorLow"`
	ColorHigh      [3]float64 `json:"colorHigh"`
	SpringStrength float64    `json:"springStrength"`
	Damping        float64    `json:"damping"`
	NoiseStrength  float64    `json:"noiseStrength"`
	PulseSpeed     float64    `json:"pulseSpeed"`
}

// DefaultParams returns the stock tuning: a deep red formation that
// brightens toward pink as particles speed up.
func DefaultParams() Params {
	return Params{
		ColorLow:       [3]float64{0.78, 0.05, 0.15},
		ColorHigh:      [3]float64{1.0, 0.72, 0.84},
		SpringStrength: 0.02,
		Damping:        0.92,
		NoiseStrength:  0.06,
		PulseSpeed:     1.0,
	}
}

// Force and response constants.
const (
	// expandScale and contractScale convert gesture strength into force
	// magnitude per unit time.
	expandScale   = 50.0
	contractScale = 5.0
	// normalizeEpsilon guards the radial direction against a zero-length
	// position vector.
	normalizeEpsilon = 1e-6
	// speedColorScale maps particle speed onto the [0,1] color
	// interpolation factor.
	speedColorScale = 0.5
	// rotationSmoothing is the fixed per-step exponential factor applied
	// when tracking a hand's rotation target. Frame-rate dependent on
	// purpose; the idle spin below is not.
	rotationSmoothing = 0.1
	// idleSpinRate is the rotation rate in radians per second when no
	// hand is tracked.
	idleSpinRate = 0.1
)

// Engine holds the four parallel particle buffers and the handful of
// scalars that survive between steps. Buffers are flat, three floats per
// particle, indexed by particle id; only the activeCount prefix is
// simulated and exposed. The engine is not safe for concurrent use: the
// driver loop must sequence Step, Reset, and SetActiveCount.
type Engine struct {
	pos  []float64
	home []float64
	vel  []float64
	col  []float64

	maxCount    int
	activeCount int

	params   Params
	time     float64
	rotation float64

	gen *heart.Generator
	rng *rand.Rand
}

// New allocates an engine with maxCount particles seeded onto the heart
// volume. Positions start at their home targets, so there is no spawn-in
// animation, and all particles begin active.
func New(maxCount int, seed uint64, params Params) *Engine {
	e := &Engine{
		pos:         make([]float64, 3*maxCount),
		home:        make([]float64, 3*maxCount),
		vel:         make([]float64, 3*maxCount),
		col:         make([]float64, 3*maxCount),
		maxCount:    maxCount,
		activeCount: maxCount,
		params:      params,
		gen:         heart.NewGenerator(seed),
		rng:         rand.New(rand.NewPCG(seed, seed+1)),
	}
	e.regenerate()
	return e
}

// regenerate resamples home targets for every allocated particle, snaps
// positions onto them, and zeroes velocities. It always covers the full
// buffer, never just the active prefix.
func (e *Engine) regenerate() {
	for i := 0; i < e.maxCount; i++ {
		x, y, z := e.gen.Sample()
		b := 3 * i
		e.home[b], e.home[b+1], e.home[b+2] = x, y, z
		e.pos[b], e.pos[b+1], e.pos[b+2] = x, y, z
		e.vel[b], e.vel[b+1], e.vel[b+2] = 0, 0, 0
		e.col[b], e.col[b+1], e.col[b+2] = e.params.ColorLow[0], e.params.ColorLow[1], e.params.ColorLow[2]
	}
}

// Reset regenerates the formation geometry and clears gesture-driven
// momentum. The active count, pulse phase, and smoothed rotation are
// preserved.
func (e *Engine) Reset() {
	e.regenerate()
}

// SetActiveCount clamps n to [0, maxCount] and sets the simulated prefix
// length. Buffer contents are untouched, so shrinking and re-growing
// reproduces the frozen data for indices that stayed in bounds.
func (e *Engine) SetActiveCount(n int) {
	if n < 0 {
		n = 0
	}
	if n > e.maxCount {
		n = e.maxCount
	}
	e.activeCount = n
}

// ActiveCount returns the number of particles currently simulated.
func (e *Engine) ActiveCount() int { return e.activeCount }

// MaxCount returns the allocated particle capacity.
func (e *Engine) MaxCount() int { return e.maxCount }

// Rotation returns the smoothed rotation angle in radians for the
// renderer to apply to the particle group's transform.
func (e *Engine) Rotation() float64 { return e.rotation }

// Params returns the current simulation parameters.
func (e *Engine) Params() Params { return e.params }

// SetParams replaces the simulation parameters with immediate effect on
// the next step.
func (e *Engine) SetParams(p Params) { e.params = p }

// Positions returns the active prefix of the position buffer, three
// floats per particle. The slice is a read-only view into engine-owned
// memory, valid until the next Step or Reset.
func (e *Engine) Positions() []float64 { return e.pos[:3*e.activeCount] }

// Colors returns the active prefix of the color buffer, three floats per
// particle, derived from each particle's current speed.
func (e *Engine) Colors() []float64 { return e.col[:3*e.activeCount] }

// Homes returns the active prefix of the home-target buffer.
func (e *Engine) Homes() []float64 { return e.home[:3*e.activeCount] }

// Step advances the simulation by dt seconds under the given gesture.
//
// Per particle the order is fixed: spring toward the pulse-scaled home,
// gesture force, per-axis uniform noise, then semi-implicit Euler
// integration where damping is applied after force accumulation and
// before the position update. Color is recomputed from the resulting
// speed every step, never carried across steps.
func (e *Engine) Step(dt float64, g gesture.State) {
	e.time += dt * e.params.PulseSpeed

	// Two sines at the same frequency with a phase offset give the
	// heartbeat its irregular, non-sinusoidal envelope.
	phase := 3 * e.time
	pulse := 1 + math.Sin(phase)*0.05*(1+math.Sin(phase+math.Pi)*0.5)

	spring := e.params.SpringStrength
	damping := e.params.Damping
	noise := e.params.NoiseStrength

	for i := 0; i < e.activeCount; i++ {
		b := 3 * i
		px, py, pz := e.pos[b], e.pos[b+1], e.pos[b+2]

		fx := (e.home[b]*pulse - px) * spring
		fy := (e.home[b+1]*pulse - py) * spring
		fz := (e.home[b+2]*pulse - pz) * spring

		switch g.Kind {
		case gesture.Expand:
			mag := expandScale * g.Strength * dt
			scale := mag / (math.Sqrt(px*px+py*py+pz*pz) + normalizeEpsilon)
			fx += px * scale
			fy += py * scale
			fz += pz * scale
		case gesture.Contract:
			k := contractScale * g.Strength * dt
			fx -= px * k
			fy -= py * k
			fz -= pz * k
		}

		fx += (e.rng.Float64() - 0.5) * noise
		fy += (e.rng.Float64() - 0.5) * noise
		fz += (e.rng.Float64() - 0.5) * noise

		vx := (e.vel[b] + fx) * damping
		vy := (e.vel[b+1] + fy) * damping
		vz := (e.vel[b+2] + fz) * damping
		e.vel[b], e.vel[b+1], e.vel[b+2] = vx, vy, vz

		e.pos[b] = px + vx
		e.pos[b+1] = py + vy
		e.pos[b+2] = pz + vz

		speed := math.Sqrt(vx*vx + vy*vy + vz*vz)
		f := math.Min(speed*speedColorScale, 1)
		e.col[b] = e.params.ColorLow[0] + (e.params.ColorHigh[0]-e.params.ColorLow[0])*f
		e.col[b+1] = e.params.ColorLow[1] + (e.params.ColorHigh[1]-e.params.ColorLow[1])*f
		e.col[b+2] = e.params.ColorLow[2] + (e.params.ColorHigh[2]-e.params.ColorLow[2])*f
	}

	if g.HasRotation {
		e.rotation += (g.RotationAngle - e.rotation) * rotationSmoothing
	} else {
		e.rotation += dt * idleSpinRate
	}
}

// CheckFinite verifies that every active particle's position and velocity
// are finite. Debugging aid; forces are bounded when inputs are valid, so
// the step loop does not pay for this check.
func (e *Engine) CheckFinite() error {
	for i := 0; i < 3*e.activeCount; i++ {
		if math.IsNaN(e.pos[i]) || math.IsInf(e.pos[i], 0) {
			return fmt.Errorf("particle %d: position not finite", i/3)
		}
		if math.IsNaN(e.vel[i]) || math.IsInf(e.vel[i], 0) {
			return fmt.Errorf("particle %d: velocity not finite", i/3)
		}
	}
	return nil
}
