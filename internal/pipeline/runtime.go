package pipeline

import (
	"context"
	"time"

	"github.com/banshee-data/depthdust/internal/render"
	"github.com/banshee-data/depthdust/internal/timeutil"
)

// Command is an operator request delivered to a running Runtime.
type Command int

const (
	CommandQuit Command = iota + 1
	CommandCycleColorMode
	CommandResetParticles
)

// Reloader is polled for configuration changes. changed is false when the
// source is unchanged.
type Reloader interface {
	Reload() (cfg Config, changed bool, err error)
}

// RuntimeStats counts cycles run and skipped by a Runtime.
type RuntimeStats struct {
	Ticks          uint64
	Cycles         uint64
	SkippedNoFrame uint64 // source not streaming
	SkippedGrab    uint64 // Grab returned false
	Errors         uint64
}

// Runtime drives a Pipeline from a fixed-rate ticker. Source is required;
// every other collaborator is optional.
type Runtime struct {
	Pipeline *Pipeline
	Source   Source
	Renderer Renderer
	Loudness LoudnessMonitor
	Recorder FrameSink
	Sinks    []StatsSink
	Reloader Reloader
	Commands <-chan Command

	Clock     timeutil.Clock
	TargetFPS int

	// MaxCycles stops Run after that many completed cycles; 0 runs until
	// the context is cancelled.
	MaxCycles uint64

	// ReloadEvery is the number of ticks between Reloader polls. 0 polls
	// once per second of ticks.
	ReloadEvery int

	// StopWhenSourceEnds makes Run return once the source stops streaming,
	// as a finished replay does.
	StopWhenSourceEnds bool

	// SummaryEvery is the interval between diag summaries; 0 disables them.
	SummaryEvery time.Duration

	Policy render.Policy

	stats       RuntimeStats
	lastSummary time.Time
	sinceReload int
}

// Stats returns the runtime counters.
func (rt *Runtime) Stats() RuntimeStats { return rt.stats }

func (rt *Runtime) clock() timeutil.Clock {
	if rt.Clock == nil {
		rt.Clock = timeutil.RealClock{}
	}
	return rt.Clock
}

func (rt *Runtime) fps() int {
	if rt.TargetFPS > 0 {
		return rt.TargetFPS
	}
	if rt.Pipeline != nil && rt.Pipeline.cfg.TargetFPS > 0 {
		return rt.Pipeline.cfg.TargetFPS
	}
	return 60
}

// Run ticks until ctx is cancelled, a quit command arrives, MaxCycles is
// reached, the source ends (with StopWhenSourceEnds) or the renderer fails.
// Per-cycle failures are logged and skipped.
func (rt *Runtime) Run(ctx context.Context) error {
	clock := rt.clock()
	period := timeutil.FramePeriod(rt.fps())
	ticker := clock.NewTicker(period)
	defer ticker.Stop()
	rt.lastSummary = clock.Now()

	opsf("runtime started: %d fps", rt.fps())
	defer func() {
		opsf("runtime stopped: cycles=%d skipped(no stream)=%d skipped(grab)=%d errors=%d",
			rt.stats.Cycles, rt.stats.SkippedNoFrame, rt.stats.SkippedGrab, rt.stats.Errors)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-rt.Commands:
			if !ok {
				rt.Commands = nil
				continue
			}
			if rt.handle(cmd) {
				return nil
			}
		case <-ticker.C():
			if err := rt.Tick(); err != nil {
				return err
			}
			if rt.MaxCycles > 0 && rt.stats.Cycles >= rt.MaxCycles {
				return nil
			}
			if rt.StopWhenSourceEnds && !rt.Source.IsStreaming() {
				opsf("source ended")
				return nil
			}
			if fps := rt.fps(); timeutil.FramePeriod(fps) != period {
				period = timeutil.FramePeriod(fps)
				ticker.Reset(period)
				diagf("frame period now %s", period)
			}
		}
	}
}

// handle applies cmd and reports whether the runtime should stop.
func (rt *Runtime) handle(cmd Command) bool {
	switch cmd {
	case CommandQuit:
		opsf("quit requested")
		return true
	case CommandCycleColorMode:
		rt.Policy.Mode = rt.Policy.Mode.Next()
		diagf("colour mode %s", rt.Policy.Mode)
	case CommandResetParticles:
		rt.Pipeline.Reset()
		diagf("pipeline reset")
	}
	return false
}

// Tick runs at most one cycle. A source that is not streaming or fails to
// grab leaves the previous view on screen. Only renderer errors are
// returned; cycle errors are counted and logged.
func (rt *Runtime) Tick() error {
	rt.stats.Ticks++
	rt.maybeReload()

	if !rt.Source.IsStreaming() {
		rt.stats.SkippedNoFrame++
		tracef("tick %d: source not streaming", rt.stats.Ticks)
		return nil
	}
	if !rt.Source.Grab() {
		rt.stats.SkippedGrab++
		tracef("tick %d: grab failed", rt.stats.Ticks)
		return nil
	}

	frame := rt.Source.DepthFrame()
	calib := rt.Source.Calibration()
	if rt.Recorder != nil {
		if err := rt.Recorder.WriteFrame(frame, calib); err != nil {
			opsf("recording frame: %v", err)
		}
	}

	var level float64
	var hasLevel bool
	if rt.Loudness != nil {
		level, hasLevel = rt.Loudness.Level()
	}

	stats, err := rt.Pipeline.Cycle(frame, calib, level, hasLevel)
	if err != nil {
		rt.stats.Errors++
		opsf("cycle %d: %v", rt.Pipeline.CycleIndex(), err)
		return nil
	}
	rt.stats.Cycles++

	for _, s := range rt.Sinks {
		s.Sample(stats)
	}
	rt.summarise(stats)

	if rt.Renderer != nil {
		if err := rt.Renderer.Render(rt.Pipeline.View(rt.Policy)); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) maybeReload() {
	if rt.Reloader == nil {
		return
	}
	every := rt.ReloadEvery
	if every <= 0 {
		every = rt.fps()
	}
	rt.sinceReload++
	if rt.sinceReload < every {
		return
	}
	rt.sinceReload = 0

	cfg, changed, err := rt.Reloader.Reload()
	if err != nil {
		opsf("config reload: %v", err)
		return
	}
	if !changed {
		return
	}
	if err := rt.Pipeline.ApplyConfig(cfg); err != nil {
		opsf("config reload: %v", err)
		return
	}
	rt.Policy.Mode = cfg.Policy.Mode
	opsf("config reloaded")
}

func (rt *Runtime) summarise(stats CycleStats) {
	if rt.SummaryEvery <= 0 {
		return
	}
	now := rt.clock().Now()
	if now.Sub(rt.lastSummary) < rt.SummaryEvery {
		return
	}
	rt.lastSummary = now
	diagf("cycle=%d particles=%d contours=%d cycles=%d skipped=%d/%d last=%s",
		stats.Cycle, stats.Particles, stats.Contours, rt.stats.Cycles,
		rt.stats.SkippedNoFrame, rt.stats.SkippedGrab, stats.Duration)
}
