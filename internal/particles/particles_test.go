package particles

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func testRamp() Ramp {
	return Ramp{
		Start: RGBA{A: 0.15, Color: mustHex("#fdb813", 1).Color},
		End:   RGBA{A: 0, Color: mustHex("#004280", 0).Color},
	}
}

func TestParticle_AgeDecrementsByOne(t *testing.T) {
	t.Parallel()
	p := NewParticle(r3.Vec{}, r3.Vec{X: 1}, 10, testRamp(), VariantStandard)
	for want := 9; want > 0; want-- {
		p.Step(DefaultDamping())
		require.True(t, p.Active)
		assert.Equal(t, want, p.Age)
	}
	p.Step(DefaultDamping())
	assert.False(t, p.Active)
	assert.Equal(t, 0, p.Age)

	// Inactive particles are never stepped again.
	snapshot := p
	p.Step(DefaultDamping())
	assert.Equal(t, snapshot, p)
}

func TestParticle_Kinematics(t *testing.T) {
	t.Parallel()
	p := NewParticle(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 0.1, Y: -4, Z: -1}, 50, testRamp(), VariantStandard)
	p.Step(Damping{Factor: 0.5})
	assert.InDelta(t, 1.1, p.Position.X, 1e-12)
	assert.InDelta(t, -2.0, p.Position.Y, 1e-12)
	assert.InDelta(t, 2.0, p.Position.Z, 1e-12)
	assert.InDelta(t, -2.0, p.Velocity.Y, 1e-12)
	assert.InDelta(t, 0.05, p.Velocity.X, 1e-12)
}

func TestParticle_DyingStepSkipsKinematics(t *testing.T) {
	t.Parallel()
	p := NewParticle(r3.Vec{X: 5}, r3.Vec{X: 1}, 1, testRamp(), VariantStandard)
	p.Step(DefaultDamping())
	assert.False(t, p.Active)
	assert.Equal(t, 5.0, p.Position.X)
	assert.Equal(t, 1.0, p.Velocity.X)
}

func TestDamping_Floor(t *testing.T) {
	t.Parallel()
	d := Damping{Factor: 0.99, FloorEnabled: true, FloorHeight: -100, FloorFactor: 0.5}
	assert.Equal(t, 0.99, d.FactorAt(r3.Vec{Y: 0}))
	assert.Equal(t, 0.99, d.FactorAt(r3.Vec{Y: -100}))
	assert.Equal(t, 0.5, d.FactorAt(r3.Vec{Y: -100.5}))

	d.FloorEnabled = false
	assert.Equal(t, 0.99, d.FactorAt(r3.Vec{Y: -1000}))

	p := NewParticle(r3.Vec{Y: -99}, r3.Vec{Y: -2}, 10, testRamp(), VariantStandard)
	p.Step(Damping{Factor: 0.99, FloorEnabled: true, FloorHeight: -100, FloorFactor: 0.5})
	assert.InDelta(t, -1.0, p.Velocity.Y, 1e-12, "floor factor applies once below the floor")
}

func TestParticle_ColorInterpolation(t *testing.T) {
	t.Parallel()
	ramp := testRamp()
	p := NewParticle(r3.Vec{}, r3.Vec{}, 120, ramp, VariantStandard)

	assert.Equal(t, ramp.Start, p.Color, "colour at birth is the start colour")
	assert.Equal(t, ramp.Start, p.ColorAt(p.InitialLife))
	assert.Equal(t, ramp.End, p.ColorAt(0))

	for i := 0; i < 40; i++ {
		p.Step(DefaultDamping())
		want := Lerp(p.EndColor, p.StartColor, float64(p.Age)/float64(p.InitialLife))
		if diff := cmp.Diff(want, p.Color); diff != "" {
			t.Fatalf("age %d colour mismatch (-want +got):\n%s", p.Age, diff)
		}
	}
	assert.Less(t, p.Color.A, ramp.Start.A)
}

func TestLerp_Endpoints(t *testing.T) {
	t.Parallel()
	a := RGBA{A: 0.3}
	a.R, a.G, a.B = 0.1, 0.7, 0.2
	b := RGBA{A: 0.9}
	b.R, b.G, b.B = 0.3, 0.1, 1
	assert.Equal(t, a, Lerp(a, b, 0))
	assert.Equal(t, b, Lerp(a, b, 1))
	mid := Lerp(a, b, 0.5)
	assert.InDelta(t, 0.2, mid.R, 1e-12)
	assert.InDelta(t, 0.6, mid.A, 1e-12)
}

func TestSystem_CapacityEnforcedAtSpawn(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Capacity = 10
	s := NewSystem(cfg, rand.New(rand.NewSource(1)))

	accepted := 0
	for i := 0; i < 15; i++ {
		_, ok := s.Spawn(r3.Vec{X: float64(i)}, r3.Vec{}, AgeRange{Min: 30, Max: 120}, 0.15, VariantStandard)
		if ok {
			accepted++
		}
		assert.LessOrEqual(t, s.Len(), 10)
	}
	assert.Equal(t, 10, accepted)
	require.Equal(t, 10, s.Len())
	for i, p := range s.Particles() {
		assert.Equal(t, float64(i), p.Position.X, "first ten attempts are kept")
	}
}

func TestSystem_SpawnDraws(t *testing.T) {
	t.Parallel()
	s := NewSystem(DefaultConfig(), rand.New(rand.NewSource(7)))
	for i := 0; i < 200; i++ {
		p, ok := s.Spawn(r3.Vec{}, r3.Vec{}, AgeRange{Min: 30, Max: 120}, 0.15, VariantStandard)
		require.True(t, ok)
		assert.GreaterOrEqual(t, p.Age, 30)
		assert.LessOrEqual(t, p.Age, 120)
		assert.Equal(t, p.Age, p.InitialLife)
		assert.GreaterOrEqual(t, p.StartColor.A, 0.0)
		assert.LessOrEqual(t, p.StartColor.A, 0.15)
		assert.Equal(t, 0.0, p.EndColor.A)
		assert.True(t, p.Active)
	}

	accent, ok := s.Spawn(r3.Vec{}, r3.Vec{}, Fixed(180), 1, VariantAccent)
	require.True(t, ok)
	assert.Equal(t, 180, accent.Age)
	assert.Equal(t, VariantAccent, accent.Variant)
	assert.Equal(t, DefaultPalette().Accent.End, accent.EndColor)
}

func TestSystem_StepPrunesAndKeepsOrder(t *testing.T) {
	t.Parallel()
	s := NewSystem(DefaultConfig(), nil)
	for i, age := range []int{3, 1, 5, 1, 2} {
		require.True(t, s.Add(NewParticle(r3.Vec{X: float64(i)}, r3.Vec{}, age, testRamp(), VariantStandard)))
	}

	removed := s.Step()
	assert.Equal(t, 2, removed)
	var xs []float64
	for _, p := range s.Particles() {
		assert.True(t, p.Active)
		xs = append(xs, p.Position.X)
	}
	assert.Equal(t, []float64{0, 2, 4}, xs)

	assert.Equal(t, 1, s.Step()) // the age-2 particle
	assert.Equal(t, 1, s.Step()) // the age-3 particle
	assert.Equal(t, 1, s.Len())
	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestSystem_SetCapacityDoesNotEvict(t *testing.T) {
	t.Parallel()
	s := NewSystem(DefaultConfig(), nil)
	for i := 0; i < 8; i++ {
		s.Add(NewParticle(r3.Vec{}, r3.Vec{}, 100, testRamp(), VariantStandard))
	}
	s.SetCapacity(4)
	assert.Equal(t, 8, s.Len())
	assert.True(t, s.Full())
	_, ok := s.Spawn(r3.Vec{}, r3.Vec{}, Fixed(10), 0.1, VariantStandard)
	assert.False(t, ok)

	s.SetCapacity(-3)
	assert.Equal(t, 0, s.Capacity())
}

func TestAgeRange_Draw(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := AgeRange{Min: 4, Max: 6}.Draw(rng)
		seen[v] = true
		assert.True(t, v >= 4 && v <= 6)
	}
	assert.Len(t, seen, 3, "both bounds are reachable")
	assert.Equal(t, 5, AgeRange{Min: 9, Max: 5}.Draw(nil))
	assert.Equal(t, 180, Fixed(180).Draw(rng))
}

func TestPalette(t *testing.T) {
	t.Parallel()
	p, err := NewPalette("#ff0000", "#000000", "#ffffff", "#00ff00")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.Standard.Start.R, 1e-9)
	assert.Equal(t, 0.0, p.Standard.End.A)
	assert.Equal(t, p.Accent, p.Ramp(VariantAccent))
	assert.Equal(t, p.Standard, p.Ramp(VariantStandard))

	_, err = NewPalette("red", "#000000", "#ffffff", "#00ff00")
	assert.Error(t, err)
	_, err = ParseHex("#12", 1)
	assert.Error(t, err)
}
