package pipeline

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/motion"
	"github.com/banshee-data/depthdust/internal/particles"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/render"
	"github.com/banshee-data/depthdust/internal/spawner"
)

// ErrNilFrame is returned by Cycle when no frame is supplied.
var ErrNilFrame = errors.New("pipeline: nil depth frame")

// Source supplies depth frames. sensor.Session, sensor.AsyncSource and
// recording-backed sessions implement it.
type Source interface {
	IsStreaming() bool
	Grab() bool
	DepthFrame() *depth.Frame
	Calibration() projection.Intrinsics
}

// Renderer draws one cycle's view. The view and every slice in it are only
// valid until the next Cycle call.
type Renderer interface {
	Render(view View) error
}

// LoudnessMonitor reports the loudness of the last frame period in [0,1].
// ok is false when no reading is available.
type LoudnessMonitor interface {
	Level() (level float64, ok bool)
}

// StatsSink receives the statistics of every completed cycle.
type StatsSink interface {
	Sample(stats CycleStats)
}

// FrameSink receives every grabbed frame before it is processed.
type FrameSink interface {
	WriteFrame(frame *depth.Frame, calib projection.Intrinsics) error
}

// PointSets are the per-cycle point snapshots handed to the renderer.
type PointSets struct {
	Cloud   []projection.Point3D // subsampled foreground points
	Contour []projection.Point3D // "bolt" points on retained contours
	Border  []projection.Point3D // foreground points in the bottom rows
}

func (ps *PointSets) reset() {
	ps.Cloud = ps.Cloud[:0]
	ps.Contour = ps.Contour[:0]
	ps.Border = ps.Border[:0]
}

// CycleStats describes one completed cycle.
type CycleStats struct {
	Cycle      uint64
	Foreground int
	Contours   int

	SpawnRan bool
	Gated    bool
	Sampled  int
	Spawned  int
	Accents  int

	RejectedDepth    int
	RejectedPrevMask int
	RejectedHeight   int
	RejectedCapacity int

	Removed   int
	Particles int

	CloudPoints  int
	BoltPoints   int
	BorderPoints int

	Loudness    float64
	HasLoudness bool

	Duration time.Duration
}

// View is the read-only result of the last cycle.
type View struct {
	Points      PointSets
	Particles   []particles.Particle
	Stats       CycleStats
	Calibration projection.Intrinsics
	Policy      render.Policy
}

// Pipeline holds the state carried between cycles.
type Pipeline struct {
	cfg    Config
	width  int
	height int

	current   *depth.Mask
	previous  *depth.Mask
	prevDepth *depth.Frame
	havePrev  bool

	detector *motion.Detector
	spawner  *spawner.Spawner
	system   *particles.System

	points   PointSets
	contours []motion.Contour
	calib    projection.Intrinsics
	stats    CycleStats
	cycle    uint64

	now func() time.Time
}

// New creates a pipeline for width×height frames. rng drives every random
// draw of the spawner and the particle system; pass a seeded source for
// reproducible runs.
func New(cfg Config, width, height int, rng *rand.Rand) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	p := &Pipeline{
		cfg:      cfg,
		spawner:  spawner.New(cfg.spawnParams(), rng),
		system:   particles.NewSystem(cfg.Particles, rng),
		detector: motion.NewDetector(width, height),
		now:      time.Now,
	}
	p.allocate(width, height)
	return p, nil
}

func (p *Pipeline) allocate(width, height int) {
	p.width, p.height = width, height
	p.current = depth.NewMask(width, height)
	p.previous = depth.NewMask(width, height)
	p.prevDepth = depth.NewFrame(width, height)
	p.havePrev = false
}

// ApplyConfig swaps in new settings. Live particles are kept; a smaller
// capacity only limits future spawns.
func (p *Pipeline) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	p.cfg = cfg
	p.spawner.SetParams(cfg.spawnParams())
	p.system.Configure(cfg.Particles)
	diagf("config applied: depth=(%d,%d) threshold=%.0f minArea=%.0f interval=%d stride=%d capacity=%d",
		cfg.DepthMin, cfg.DepthMax, cfg.Threshold, cfg.MinPolyArea,
		cfg.Spawn.Interval, cfg.Spawn.Stride, cfg.Particles.Capacity)
	return nil
}

// Config returns the settings in use.
func (p *Pipeline) Config() Config { return p.cfg }

// CycleIndex returns the index the next cycle will run with.
func (p *Pipeline) CycleIndex() uint64 { return p.cycle }

// System exposes the particle system, mainly for tests and reports.
func (p *Pipeline) System() *particles.System { return p.system }

// Contours returns the contours retained by the last cycle.
func (p *Pipeline) Contours() []motion.Contour { return p.contours }

// Mask returns the foreground mask of the last cycle.
func (p *Pipeline) Mask() *depth.Mask { return p.previous }

// Cycle runs one full pass over frame: normalise, build point sets, detect
// motion against the previous mask, spawn from the previous depth frame,
// retire the current buffers into the previous slots and step the particle
// system. Particles spawned here are stepped in the same cycle.
func (p *Pipeline) Cycle(frame *depth.Frame, calib projection.Intrinsics, loudness float64, hasLoudness bool) (CycleStats, error) {
	if frame == nil {
		return CycleStats{}, ErrNilFrame
	}
	start := p.now()
	if frame.Width() != p.width || frame.Height() != p.height {
		diagf("frame size changed %dx%d -> %dx%d; dropping previous frame", p.width, p.height, frame.Width(), frame.Height())
		p.allocate(frame.Width(), frame.Height())
	}
	cfg := p.cfg
	p.calib = calib

	if err := depth.NormalizeInto(p.current, frame, cfg.DepthMin, cfg.DepthMax, cfg.Threshold); err != nil {
		return CycleStats{}, err
	}

	contours, err := p.detector.Detect(p.current, p.previous, cfg.MinPolyArea)
	if err != nil {
		return CycleStats{}, err
	}
	p.contours = contours
	p.buildPointSets(frame, calib)

	in := spawner.Input{
		Contours:     contours,
		PreviousMask: p.previous,
		Calibration:  calib,
		Cycle:        p.cycle,
		Loudness:     loudness,
		HasLoudness:  hasLoudness,
	}
	if p.havePrev {
		in.PreviousDepth = p.prevDepth
	}
	res := p.spawner.MaybeSpawn(p.system, in)

	p.current, p.previous = p.previous, p.current
	if err := p.prevDepth.CopyFrom(frame); err != nil {
		return CycleStats{}, err
	}
	p.havePrev = true

	removed := p.system.Step()

	p.stats = CycleStats{
		Cycle:            p.cycle,
		Foreground:       p.previous.Count(),
		Contours:         len(contours),
		SpawnRan:         res.Ran,
		Gated:            res.Gated,
		Sampled:          res.Sampled,
		Spawned:          len(res.Spawned),
		Accents:          res.Accents(),
		RejectedDepth:    res.RejectedDepth,
		RejectedPrevMask: res.RejectedPrevMask,
		RejectedHeight:   res.RejectedHeight,
		RejectedCapacity: res.RejectedCapacity,
		Removed:          removed,
		Particles:        p.system.Len(),
		CloudPoints:      len(p.points.Cloud),
		BoltPoints:       len(p.points.Contour),
		BorderPoints:     len(p.points.Border),
		Loudness:         loudness,
		HasLoudness:      hasLoudness,
		Duration:         p.now().Sub(start),
	}
	tracef("cycle=%d fg=%d contours=%d sampled=%d spawned=%d removed=%d particles=%d",
		p.stats.Cycle, p.stats.Foreground, p.stats.Contours, p.stats.Sampled,
		p.stats.Spawned, p.stats.Removed, p.stats.Particles)

	p.cycle++
	return p.stats, nil
}

// buildPointSets fills the render point sets from the current mask and
// frame. The slices are reused across cycles.
func (p *Pipeline) buildPointSets(frame *depth.Frame, calib projection.Intrinsics) {
	cfg := p.cfg
	p.points.reset()

	stride := max(cfg.CloudStride, 1)
	for y := 0; y < p.height; y += stride {
		for x := 0; x < p.width; x += stride {
			if p.current.IsForeground(x, y) {
				p.points.Cloud = append(p.points.Cloud, projection.ProjectPixel(x, y, frame.At(x, y), calib))
			}
		}
	}

	// Border rows keep every column.
	firstBorder := max(p.height-cfg.BorderRows, 0)
	for y := firstBorder; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			if p.current.IsForeground(x, y) {
				p.points.Border = append(p.points.Border, projection.ProjectPixel(x, y, frame.At(x, y), calib))
			}
		}
	}

	for ci := range p.contours {
		c := &p.contours[ci]
		for _, vi := range c.Sample(cfg.BoltStride) {
			px := c.Pixels[vi]
			if p.current.IsForeground(px.X, px.Y) {
				p.points.Contour = append(p.points.Contour, projection.ProjectPixel(px.X, px.Y, frame.At(px.X, px.Y), calib))
			}
		}
	}
}

// View returns the result of the last cycle with the given policy.
func (p *Pipeline) View(policy render.Policy) View {
	return View{
		Points:      p.points,
		Particles:   p.system.Particles(),
		Stats:       p.stats,
		Calibration: p.calib,
		Policy:      policy,
	}
}

// Reset clears the carried state and every live particle. The next cycle
// index is 0 again.
func (p *Pipeline) Reset() {
	p.current.Clear()
	p.previous.Clear()
	p.havePrev = false
	p.contours = nil
	p.points.reset()
	p.system.Reset()
	p.stats = CycleStats{}
	p.cycle = 0
}
