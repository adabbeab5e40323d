package particles

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Variant distinguishes the ordinary particle from the rarer, longer-lived
// accent particle.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantAccent   Variant = "accent"
)

// Damping scales velocity once per step. When FloorEnabled is set and the
// particle is below FloorHeight (y up), FloorFactor is used instead.
type Damping struct {
	Factor       float64
	FloorEnabled bool
	FloorHeight  float64
	FloorFactor  float64
}

// DefaultDamping is the plain 0.99 per-step decay with no floor.
func DefaultDamping() Damping {
	return Damping{Factor: 0.99, FloorFactor: 0.5}
}

// FactorAt returns the damping factor for a particle at pos.
func (d Damping) FactorAt(pos r3.Vec) float64 {
	if d.FloorEnabled && pos.Y < d.FloorHeight {
		return d.FloorFactor
	}
	return d.Factor
}

// Particle is one short-lived point of the effect.
type Particle struct {
	Position r3.Vec
	Velocity r3.Vec

	// Age counts down by one per step; the particle dies when it reaches 0.
	Age         int
	InitialLife int

	StartColor RGBA
	EndColor   RGBA
	Color      RGBA

	Active  bool
	Variant Variant
}

// NewParticle returns an active particle at pos with the given life and
// colour ramp. Its colour starts at ramp.Start.
func NewParticle(pos, vel r3.Vec, age int, ramp Ramp, v Variant) Particle {
	return Particle{
		Position:    pos,
		Velocity:    vel,
		Age:         age,
		InitialLife: age,
		StartColor:  ramp.Start,
		EndColor:    ramp.End,
		Color:       ramp.Start,
		Active:      age > 0,
		Variant:     v,
	}
}

// ColorAt returns the ramp colour for a particle with the given remaining
// age: EndColor at 0, StartColor at InitialLife.
func (p *Particle) ColorAt(age int) RGBA {
	if p.InitialLife <= 0 {
		return p.EndColor
	}
	return Lerp(p.EndColor, p.StartColor, float64(age)/float64(p.InitialLife))
}

// Step advances the particle by one cycle. Inactive particles are left
// untouched. A particle whose age reaches 0 becomes inactive and skips the
// kinematic and colour update.
func (p *Particle) Step(d Damping) {
	if !p.Active {
		return
	}
	p.Age--
	if p.Age <= 0 {
		p.Active = false
		return
	}
	p.Position = r3.Add(p.Position, p.Velocity)
	p.Velocity = r3.Scale(d.FactorAt(p.Position), p.Velocity)
	p.Color = p.ColorAt(p.Age)
}
