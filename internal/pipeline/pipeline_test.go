package pipeline

import (
	"image"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depthdust/internal/config"
	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/render"
	"github.com/banshee-data/depthdust/internal/testutil"
)

const (
	testSize       = 100
	testBackground = 1900 // in range, below the threshold after remapping
	testNear       = 500
)

var testSquare = image.Rect(20, 10, 70, 60)

func testCalib() projection.Intrinsics {
	return projection.Rectified(testSize, testSize, 500)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Spawn.Interval = 1
	cfg.Spawn.AccentChance = 0
	cfg.Particles.Capacity = 1000
	return cfg
}

func backgroundFrame() *depth.Frame {
	return testutil.FlatFrame(testSize, testSize, testBackground)
}

func squareFrame(r image.Rectangle) *depth.Frame {
	return testutil.FrameWithRects(testSize, testSize, testBackground, testNear, r)
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, testSize, testSize, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return p
}

func TestCycle_SquareAppears(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	first, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first.Cycle)
	assert.Zero(t, first.Foreground)
	assert.Zero(t, first.Contours)
	assert.Zero(t, first.Spawned)

	second, err := p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.Cycle)
	assert.Equal(t, 2500, second.Foreground)
	require.Equal(t, 1, second.Contours)
	assert.Equal(t, 2500.0, p.Contours()[0].Area)

	assert.True(t, second.SpawnRan)
	assert.Equal(t, 50, second.Sampled)
	assert.Equal(t, 50, second.Spawned)
	assert.Zero(t, second.RejectedDepth)
	assert.Zero(t, second.RejectedHeight)
	assert.Equal(t, 50, second.Particles)

	assert.Equal(t, 625, second.CloudPoints)
	assert.Equal(t, 200, second.BoltPoints)
	assert.Zero(t, second.BorderPoints)

	// Spawn positions come from the previous frame's depth.
	for _, pt := range p.System().Particles() {
		assert.Less(t, pt.Position.Z, float64(testBackground)+10)
		assert.Greater(t, pt.Position.Z, float64(testBackground)-10)
	}
}

func TestCycle_SquareDisappears(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	for _, f := range []*depth.Frame{backgroundFrame(), squareFrame(testSquare)} {
		_, err := p.Cycle(f, testCalib(), 0, false)
		require.NoError(t, err)
	}

	stats, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Contours)
	assert.Equal(t, 50, stats.Spawned)
	assert.Zero(t, stats.BoltPoints, "no contour pixel is foreground in the current mask")
	assert.Equal(t, 100, stats.Particles)
}

func TestCycle_PreviousForegroundOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Spawn.PreviousForegroundOnly = true
	p := newTestPipeline(t, cfg)

	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	appear, err := p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 50, appear.RejectedPrevMask)
	assert.Zero(t, appear.Spawned)

	vanish, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Zero(t, vanish.RejectedPrevMask)
	assert.Equal(t, 50, vanish.Spawned)
}

func TestCycle_Capacity(t *testing.T) {
	cfg := testConfig()
	cfg.Particles.Capacity = 10
	p := newTestPipeline(t, cfg)

	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	stats, err := p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Spawned)
	assert.Equal(t, 40, stats.RejectedCapacity)
	assert.Equal(t, 10, stats.Particles)
}

func TestCycle_SpawnInterval(t *testing.T) {
	cfg := testConfig()
	cfg.Spawn.Interval = 5
	p := newTestPipeline(t, cfg)

	var ran []uint64
	for i := 0; i < 12; i++ {
		stats, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
		require.NoError(t, err)
		if stats.SpawnRan {
			ran = append(ran, stats.Cycle)
		}
	}
	if diff := cmp.Diff([]uint64{0, 5, 10}, ran); diff != "" {
		t.Errorf("spawn cycles mismatch (-want +got):\n%s", diff)
	}
}

func TestCycle_LoudnessGate(t *testing.T) {
	cfg := testConfig()
	cfg.Spawn.GateEnabled = true
	cfg.Spawn.GateLevel = 0.3

	tests := []struct {
		name     string
		loudness float64
		has      bool
		spawned  int
	}{
		{"quiet", 0.1, true, 0},
		{"at level", 0.3, true, 0},
		{"loud", 0.8, true, 50},
		{"no reading", 0, false, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, cfg)
			_, err := p.Cycle(backgroundFrame(), testCalib(), tt.loudness, tt.has)
			require.NoError(t, err)
			stats, err := p.Cycle(squareFrame(testSquare), testCalib(), tt.loudness, tt.has)
			require.NoError(t, err)
			assert.Equal(t, tt.spawned, stats.Spawned)
			assert.Equal(t, tt.spawned == 0, stats.Gated)
		})
	}
}

func TestCycle_SmallBlobBelowMinArea(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	stats, err := p.Cycle(squareFrame(image.Rect(0, 0, 10, 10)), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Zero(t, stats.Contours)
	assert.Zero(t, stats.Sampled)
	assert.Equal(t, 25, stats.CloudPoints)
}

func TestCycle_BorderRows(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	stats, err := p.Cycle(squareFrame(image.Rect(0, 90, testSize, testSize)), testCalib(), 0, false)
	require.NoError(t, err)
	// Two rows, every column, regardless of the cloud stride.
	assert.Equal(t, 2*testSize, stats.BorderPoints)

	cfg := testConfig()
	cfg.CloudStride = 7
	p = newTestPipeline(t, cfg)
	stats, err = p.Cycle(squareFrame(image.Rect(0, 90, testSize, testSize)), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 2*testSize, stats.BorderPoints)
}

func TestCycle_ParticlesAgeOut(t *testing.T) {
	cfg := testConfig()
	cfg.Spawn.Ages.Min, cfg.Spawn.Ages.Max = 3, 3
	p := newTestPipeline(t, cfg)

	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	stats, err := p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Particles)
	for _, pt := range p.System().Particles() {
		assert.Equal(t, 2, pt.Age)
	}

	// Stationary square: no further motion, particles age out.
	stats, err = p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Particles)
	stats, err = p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Removed)
	assert.Zero(t, stats.Particles)
}

func TestCycle_Errors(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	_, err := p.Cycle(nil, testCalib(), 0, false)
	assert.ErrorIs(t, err, ErrNilFrame)
	assert.Equal(t, uint64(0), p.CycleIndex())
}

func TestCycle_FrameSizeChange(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)

	small := depth.NewFrame(40, 30)
	small.Fill(testNear)
	stats, err := p.Cycle(small, projection.Rectified(40, 30, 200), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1200, stats.Foreground)
	assert.Zero(t, stats.Spawned, "previous frame was dropped with the resize")
	assert.Equal(t, 40, p.Mask().Width())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(testConfig(), 0, 10, nil)
	assert.Error(t, err)

	bad := testConfig()
	bad.DepthMin, bad.DepthMax = 100, 100
	_, err = New(bad, 10, 10, nil)
	assert.Error(t, err)
}

func TestApplyConfig(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	_, err = p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	require.Equal(t, 50, p.System().Len())

	cfg := testConfig()
	cfg.Particles.Capacity = 5
	require.NoError(t, p.ApplyConfig(cfg))
	assert.Equal(t, 50, p.System().Len(), "shrinking capacity keeps live particles")
	assert.Equal(t, 5, p.System().Capacity())

	// depth_max below the background moves the depth check in the spawner too.
	cfg.Particles.Capacity = 1000
	cfg.DepthMax = 1000
	require.NoError(t, p.ApplyConfig(cfg))
	assert.Equal(t, 1000, p.spawner.Params().DepthMax)

	cfg.DepthMax = -1
	assert.Error(t, p.ApplyConfig(cfg))
	assert.Equal(t, 1000, p.Config().DepthMax)
}

func TestView(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	_, err = p.Cycle(squareFrame(testSquare), testCalib(), 0.4, true)
	require.NoError(t, err)

	policy := render.DefaultPolicy()
	policy.Mode = render.ModeGold
	v := p.View(policy)
	assert.Equal(t, render.ModeGold, v.Policy.Mode)
	assert.Len(t, v.Particles, 50)
	assert.Len(t, v.Points.Contour, 200)
	assert.Equal(t, 0.4, v.Stats.Loudness)
	assert.True(t, v.Stats.HasLoudness)
	assert.Equal(t, testCalib(), v.Calibration)
}

func TestReset(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	_, err := p.Cycle(backgroundFrame(), testCalib(), 0, false)
	require.NoError(t, err)
	_, err = p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)

	p.Reset()
	assert.Zero(t, p.System().Len())
	assert.Equal(t, uint64(0), p.CycleIndex())

	// After a reset the next cycle compares against an empty mask and has
	// no previous depth to spawn from.
	stats, err := p.Cycle(squareFrame(testSquare), testCalib(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Contours)
	assert.Zero(t, stats.Spawned)
}

func TestConfigFromTuning_Defaults(t *testing.T) {
	cfg, err := ConfigFromTuning(nil)
	require.NoError(t, err)
	def := DefaultConfig()

	assert.Equal(t, def.DepthMin, cfg.DepthMin)
	assert.Equal(t, def.DepthMax, cfg.DepthMax)
	assert.Equal(t, def.Threshold, cfg.Threshold)
	assert.Equal(t, def.MinPolyArea, cfg.MinPolyArea)
	assert.Equal(t, def.Spawn, cfg.Spawn)
	assert.Equal(t, def.Particles.Capacity, cfg.Particles.Capacity)
	assert.Equal(t, def.Particles.Damping, cfg.Particles.Damping)
	assert.Equal(t, render.ModeBlue, cfg.Policy.Mode)
	assert.Equal(t, 60, cfg.TargetFPS)
}

func TestConfigFromTuning_DefaultsFile(t *testing.T) {
	fromFile, err := ConfigFromTuning(config.MustLoadDefaultConfig())
	require.NoError(t, err)
	fromNil, err := ConfigFromTuning(nil)
	require.NoError(t, err)
	assert.Equal(t, fromNil.Spawn, fromFile.Spawn)
	assert.Equal(t, fromNil.Particles.Damping, fromFile.Particles.Damping)
}

func TestConfigFromTuning_Example(t *testing.T) {
	tc, err := config.LoadTuningConfig("../../config/tuning.example.json")
	require.NoError(t, err)
	cfg, err := ConfigFromTuning(tc)
	require.NoError(t, err)

	assert.Equal(t, 1600, cfg.DepthMax)
	assert.Equal(t, 1600, cfg.Spawn.DepthMax)
	assert.Equal(t, 400.0, cfg.MinPolyArea)
	assert.True(t, cfg.Spawn.GateEnabled)
	assert.Equal(t, 0.2, cfg.Spawn.GateLevel)
	assert.True(t, cfg.Spawn.PreviousForegroundOnly)
	assert.Equal(t, 3000, cfg.Particles.Capacity)
	assert.True(t, cfg.Particles.Damping.FloorEnabled)
	assert.Equal(t, -400.0, cfg.Particles.Damping.FloorHeight)
	assert.Equal(t, 0.6, cfg.Particles.Damping.FloorFactor)
	assert.Equal(t, 30, cfg.TargetFPS)
	assert.Equal(t, render.ModeGold, cfg.Policy.Mode)
}

func TestConfigFromTuning_BadColourMode(t *testing.T) {
	mode := "purple"
	_, err := ConfigFromTuning(&config.TuningConfig{ColorMode: &mode})
	assert.Error(t, err)
}

func TestTuningReloader(t *testing.T) {
	path := t.TempDir() + "/tuning.json"
	tc := config.EmptyTuningConfig()
	capacity := 42
	tc.Capacity = &capacity
	require.NoError(t, config.SaveTuningConfig(path, tc))

	r := TuningReloader{Watcher: config.NewWatcher(path)}
	cfg, changed, err := r.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 42, cfg.Particles.Capacity)

	_, changed, err = r.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}
