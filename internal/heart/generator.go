// Package heart procedurally generates the volumetric point distribution
// that the particle formation relaxes toward.
package heart

import (
	"math"
	"math/rand/v2"
)

// Shape constants, in curve units.
const (
	// YOffset recenters the raw parametric curve, which is not centered
	// at the origin, by shifting it up two units.
	YOffset = 2.0
	// HalfDepth is the half-extent of the solid along z at the curve
	// boundary. The depth tapers toward zero at the center.
	HalfDepth = 5.0
)

// CurvePoint returns the boundary of the heart curve at parameter t,
// without the vertical recentering offset applied.
func CurvePoint(t float64) (x, y float64) {
	s := math.Sin(t)
	x = 16 * s * s * s
	y = 13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t)
	return x, y
}

// Generator samples points uniformly inside the heart-shaped solid.
// It is deterministic for a given seed and is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded for reproducible sampling.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// SamplePolar draws the raw sampling parameters: an angle t uniform over
// [0,2π) and a radial factor r in [0,1]. The square-root transform on r
// makes density uniform over the 2D area rather than spiking at the
// center.
func (g *Generator) SamplePolar() (t, r float64) {
	t = g.rng.Float64() * 2 * math.Pi
	r = math.Sqrt(g.rng.Float64())
	return t, r
}

// Sample draws one point inside the solid. The depth is scaled by the
// radial factor so the volume tapers near the boundary.
func (g *Generator) Sample() (x, y, z float64) {
	t, r := g.SamplePolar()

	bx, by := CurvePoint(t)
	x = bx * r
	y = by*r + YOffset
	z = (g.rng.Float64()*2 - 1) * HalfDepth * r
	return x, y, z
}
