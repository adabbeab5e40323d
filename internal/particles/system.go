package particles

import (
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// AgeRange is an inclusive range of lifetimes in cycles.
type AgeRange struct {
	Min int
	Max int
}

// Fixed returns a range that always yields age.
func Fixed(age int) AgeRange { return AgeRange{Min: age, Max: age} }

// Draw returns a lifetime uniformly distributed over [Min, Max]. A reversed
// range is swapped first.
func (r AgeRange) Draw(rng *rand.Rand) int {
	lo, hi := r.Min, r.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo || rng == nil {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// Config holds the particle system settings.
type Config struct {
	Capacity int
	Damping  Damping
	Palette  Palette
}

// DefaultConfig returns the installation defaults.
func DefaultConfig() Config {
	return Config{
		Capacity: 5000,
		Damping:  DefaultDamping(),
		Palette:  DefaultPalette(),
	}
}

// System owns every live particle. The collection only grows through Spawn,
// which enforces the capacity bound, and only shrinks through Step.
type System struct {
	particles []Particle
	capacity  int
	damping   Damping
	palette   Palette
	rng       *rand.Rand
}

// NewSystem creates an empty system. rng drives the age and alpha draws in
// Spawn; a nil rng yields the lower bound of every range.
func NewSystem(cfg Config, rng *rand.Rand) *System {
	s := &System{rng: rng}
	s.Configure(cfg)
	s.particles = make([]Particle, 0, s.capacity)
	return s
}

// Configure replaces capacity, damping and palette. Live particles are never
// evicted; a reduced capacity only blocks new spawns until the population
// drops below it.
func (s *System) Configure(cfg Config) {
	s.SetCapacity(cfg.Capacity)
	s.damping = cfg.Damping
	s.palette = cfg.Palette
}

// SetCapacity changes the population bound. Negative values are treated as 0.
func (s *System) SetCapacity(n int) {
	if n < 0 {
		n = 0
	}
	s.capacity = n
}

// Capacity returns the population bound.
func (s *System) Capacity() int { return s.capacity }

// Len returns the number of live particles.
func (s *System) Len() int { return len(s.particles) }

// Full reports whether a spawn would be rejected.
func (s *System) Full() bool { return len(s.particles) >= s.capacity }

// Particles returns the live particles. The slice is owned by the system and
// is only valid until the next Spawn or Step; callers must not modify it.
func (s *System) Particles() []Particle { return s.particles }

// Spawn appends a new particle if the system is below capacity. Its life is
// drawn from ages and its start alpha uniformly from [0, alphaMax]; the
// colour ramp comes from the palette entry for variant. It returns the new
// particle and true, or false when the system is full.
func (s *System) Spawn(pos, vel r3.Vec, ages AgeRange, alphaMax float64, variant Variant) (Particle, bool) {
	if s.Full() {
		return Particle{}, false
	}
	ramp := s.palette.Ramp(variant)
	alpha := alphaMax
	if s.rng != nil {
		alpha = s.rng.Float64() * alphaMax
	}
	ramp.Start = ramp.Start.WithAlpha(alpha)
	p := NewParticle(pos, vel, ages.Draw(s.rng), ramp, variant)
	return p, s.Add(p)
}

// Add appends a prepared particle subject to the same capacity rule.
func (s *System) Add(p Particle) bool {
	if s.Full() {
		return false
	}
	s.particles = append(s.particles, p)
	return true
}

// Step advances every active particle, then removes inactive ones in a
// single compacting pass that keeps the survivors in their original order.
// It returns the number of particles removed.
func (s *System) Step() int {
	for i := range s.particles {
		s.particles[i].Step(s.damping)
	}
	before := len(s.particles)
	s.particles = slices.DeleteFunc(s.particles, func(p Particle) bool { return !p.Active })
	return before - len(s.particles)
}

// Reset removes every particle.
func (s *System) Reset() {
	clear(s.particles)
	s.particles = s.particles[:0]
}
