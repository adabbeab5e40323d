// Package spawner turns contour vertices into new particles.
//
// A spawn pass runs on every Interval-th cycle. It walks every Stride-th
// vertex of each retained contour, validates the previous frame's depth at
// the vertex's owning pixel, projects it, and hands accepted samples to the
// particle system. All randomness comes from an injected *rand.Rand.
package spawner

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/motion"
	"github.com/banshee-data/depthdust/internal/particles"
	"github.com/banshee-data/depthdust/internal/projection"
)

// Range is a closed interval for uniform jitter draws.
type Range struct {
	Min float64
	Max float64
}

// Draw returns a value uniformly distributed over the range. Reversed
// bounds are accepted.
func (r Range) Draw(rng *rand.Rand) float64 {
	if rng == nil {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Jitter holds one range per velocity axis.
type Jitter struct {
	X, Y, Z Range
}

// Draw returns a velocity with each axis drawn independently.
func (j Jitter) Draw(rng *rand.Rand) r3.Vec {
	return r3.Vec{X: j.X.Draw(rng), Y: j.Y.Draw(rng), Z: j.Z.Draw(rng)}
}

// Params holds the spawn tuning. The zero value never spawns; use
// DefaultParams as a starting point.
type Params struct {
	Interval int // run on cycles where cycle % Interval == 0
	Stride   int // sample vertex indices 0, Stride, 2·Stride...

	DepthMin int
	DepthMax int

	// HeightCutoff rejects samples whose camera-space vertical coordinate
	// (image-down positive) is at or above it.
	HeightCutoff float64

	// GateEnabled suppresses the whole pass when the loudness is at or
	// below GateLevel. Without a loudness reading the gate is open.
	GateEnabled bool
	GateLevel   float64

	// PreviousForegroundOnly also requires the owning pixel to have been
	// foreground in the previous mask.
	PreviousForegroundOnly bool

	Ages     particles.AgeRange
	AlphaMax float64
	Velocity Jitter

	// Accents share AlphaMax with standard particles and differ only in
	// their fixed age, velocity jitter and colour ramp.
	AccentChance   float64
	AccentAge      int
	AccentVelocity Jitter
}

// DefaultParams returns the installation defaults.
func DefaultParams() Params {
	return Params{
		Interval:     5,
		Stride:       4,
		DepthMin:     0,
		DepthMax:     2000,
		HeightCutoff: 50,
		Ages:         particles.AgeRange{Min: 30, Max: 120},
		AlphaMax:     0.15,
		Velocity: Jitter{
			X: Range{Min: -0.15, Max: 0.15},
			Y: Range{Min: -6, Max: -2},
			Z: Range{Min: -1, Max: 0},
		},
		AccentChance: 0.05,
		AccentAge:    180,
		AccentVelocity: Jitter{
			X: Range{Min: -0.15, Max: 0.15},
			Y: Range{Min: -5.9, Max: -1.5},
			Z: Range{Min: -1, Max: 0},
		},
	}
}

// Input is everything one spawn pass reads.
type Input struct {
	Contours      []motion.Contour
	PreviousDepth *depth.Frame
	PreviousMask  *depth.Mask
	Calibration   projection.Intrinsics
	Cycle         uint64

	Loudness    float64
	HasLoudness bool
}

// Result reports what one pass did. Spawned holds copies of the particles
// appended to the system, in spawn order.
type Result struct {
	Ran     bool
	Gated   bool
	Sampled int

	Spawned []particles.Particle

	RejectedDepth    int
	RejectedPrevMask int
	RejectedHeight   int
	RejectedCapacity int
}

// Accents returns the number of accent particles spawned.
func (r Result) Accents() int {
	n := 0
	for i := range r.Spawned {
		if r.Spawned[i].Variant == particles.VariantAccent {
			n++
		}
	}
	return n
}

// Spawner applies Params to contour samples.
type Spawner struct {
	params Params
	rng    *rand.Rand
}

// New returns a spawner using rng for every draw.
func New(params Params, rng *rand.Rand) *Spawner {
	return &Spawner{params: params, rng: rng}
}

// SetParams replaces the tuning used by later passes.
func (s *Spawner) SetParams(p Params) { s.params = p }

// Params returns the current tuning.
func (s *Spawner) Params() Params { return s.params }

// ShouldRun reports whether cycle is a spawn cycle.
func (s *Spawner) ShouldRun(cycle uint64) bool {
	interval := s.params.Interval
	if interval < 1 {
		interval = 1
	}
	return cycle%uint64(interval) == 0
}

// Gated reports whether the loudness gate closes this pass.
func (s *Spawner) Gated(loudness float64, hasLoudness bool) bool {
	return s.params.GateEnabled && hasLoudness && loudness <= s.params.GateLevel
}

// MaybeSpawn runs one spawn pass against sys if in.Cycle is a spawn cycle
// and the loudness gate is open.
func (s *Spawner) MaybeSpawn(sys *particles.System, in Input) Result {
	var res Result
	if !s.ShouldRun(in.Cycle) {
		return res
	}
	res.Ran = true
	if s.Gated(in.Loudness, in.HasLoudness) {
		res.Gated = true
		return res
	}
	if in.PreviousDepth == nil {
		return res
	}

	p := s.params
	for ci := range in.Contours {
		c := &in.Contours[ci]
		for _, vi := range c.Sample(p.Stride) {
			res.Sampled++
			px := c.Pixels[vi]

			d := in.PreviousDepth.At(px.X, px.Y)
			if !depth.InRange(d, p.DepthMin, p.DepthMax) {
				res.RejectedDepth++
				continue
			}
			if p.PreviousForegroundOnly && (in.PreviousMask == nil || !in.PreviousMask.IsForeground(px.X, px.Y)) {
				res.RejectedPrevMask++
				continue
			}

			pos := projection.ProjectPixel(px.X, px.Y, d, in.Calibration)
			if projection.CameraY(pos) >= p.HeightCutoff {
				res.RejectedHeight++
				continue
			}
			if sys.Full() {
				res.RejectedCapacity++
				continue
			}

			var (
				vel  r3.Vec
				ages particles.AgeRange
				kind particles.Variant
			)
			if s.rng != nil && s.rng.Float64() < p.AccentChance {
				vel, ages, kind = p.AccentVelocity.Draw(s.rng), particles.Fixed(p.AccentAge), particles.VariantAccent
			} else {
				vel, ages, kind = p.Velocity.Draw(s.rng), p.Ages, particles.VariantStandard
			}

			if np, ok := sys.Spawn(pos, vel, ages, p.AlphaMax, kind); ok {
				res.Spawned = append(res.Spawned, np)
			} else {
				res.RejectedCapacity++
			}
		}
	}
	return res
}
