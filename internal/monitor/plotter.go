package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/depthdust/internal/pipeline"
	"github.com/banshee-data/depthdust/internal/security"
)

// DefaultMaxSamples bounds the history a CyclePlotter keeps.
const DefaultMaxSamples = 36000

// CycleSample is the subset of a cycle's statistics that is plotted.
type CycleSample struct {
	Cycle     uint64
	Particles int
	Spawned   int
	Rejected  int
	Removed   int
	Contours  int
	Loudness  float64
	Gated     bool
	Duration  time.Duration
}

func sampleFrom(s pipeline.CycleStats) CycleSample {
	return CycleSample{
		Cycle:     s.Cycle,
		Particles: s.Particles,
		Spawned:   s.Spawned,
		Rejected:  s.RejectedDepth + s.RejectedPrevMask + s.RejectedHeight + s.RejectedCapacity,
		Removed:   s.Removed,
		Contours:  s.Contours,
		Loudness:  s.Loudness,
		Gated:     s.Gated,
		Duration:  s.Duration,
	}
}

// CyclePlotter records cycle statistics while enabled and renders them as
// PNG line plots. It implements pipeline.StatsSink and is safe for
// concurrent use.
type CyclePlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string

	// MaxSamples keeps only the most recent samples; 0 uses DefaultMaxSamples.
	MaxSamples int

	samples []CycleSample
}

// NewCyclePlotter returns a disabled plotter.
func NewCyclePlotter() *CyclePlotter {
	return &CyclePlotter{}
}

// Start creates outputDir and begins recording a new run.
func (cp *CyclePlotter) Start(outputDir string) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	cp.outputDir = outputDir
	cp.enabled = true
	cp.samples = nil
	return nil
}

// Stop disables sampling. Call GeneratePlots to produce output files.
func (cp *CyclePlotter) Stop() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (cp *CyclePlotter) IsEnabled() bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.enabled
}

// Sample records one cycle.
func (cp *CyclePlotter) Sample(stats pipeline.CycleStats) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if !cp.enabled {
		return
	}
	limit := cp.MaxSamples
	if limit <= 0 {
		limit = DefaultMaxSamples
	}
	if len(cp.samples) >= limit {
		n := copy(cp.samples, cp.samples[len(cp.samples)-limit+1:])
		cp.samples = cp.samples[:n]
	}
	cp.samples = append(cp.samples, sampleFrom(stats))
}

// Samples returns a copy of the recorded samples.
func (cp *CyclePlotter) Samples() []CycleSample {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return append([]CycleSample(nil), cp.samples...)
}

// OutputDir returns the current output directory.
func (cp *CyclePlotter) OutputDir() string {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.outputDir
}

type series struct {
	name string
	y    func(CycleSample) float64
}

type plotSpec struct {
	file   string
	title  string
	ylabel string
	series []series
}

var plotSpecs = []plotSpec{
	{
		file: "particles.png", title: "Live Particles", ylabel: "Particles",
		series: []series{
			{"particles", func(s CycleSample) float64 { return float64(s.Particles) }},
		},
	},
	{
		file: "spawns.png", title: "Spawns per Cycle", ylabel: "Count",
		series: []series{
			{"spawned", func(s CycleSample) float64 { return float64(s.Spawned) }},
			{"rejected", func(s CycleSample) float64 { return float64(s.Rejected) }},
			{"removed", func(s CycleSample) float64 { return float64(s.Removed) }},
		},
	},
	{
		file: "loudness.png", title: "Loudness", ylabel: "Level",
		series: []series{
			{"loudness", func(s CycleSample) float64 { return s.Loudness }},
			{"gated", func(s CycleSample) float64 {
				if s.Gated {
					return 1
				}
				return 0
			}},
		},
	},
	{
		file: "cycle_time.png", title: "Cycle Duration", ylabel: "Milliseconds",
		series: []series{
			{"duration", func(s CycleSample) float64 { return float64(s.Duration) / float64(time.Millisecond) }},
		},
	},
}

// GeneratePlots writes one PNG per plot into the output directory and
// returns how many were written.
func (cp *CyclePlotter) GeneratePlots() (int, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(cp.samples) == 0 {
		return 0, nil
	}

	count := 0
	for _, spec := range plotSpecs {
		if err := cp.generatePlot(spec); err != nil {
			return count, fmt.Errorf("%s: %w", spec.file, err)
		}
		count++
	}
	return count, nil
}

func (cp *CyclePlotter) generatePlot(spec plotSpec) error {
	p := plot.New()
	p.Title.Text = spec.title
	p.X.Label.Text = "Cycle"
	p.Y.Label.Text = spec.ylabel

	colors := seriesColors(len(spec.series))
	for i, s := range spec.series {
		pts := make(plotter.XYs, len(cp.samples))
		for j, sample := range cp.samples {
			pts[j] = plotter.XY{X: float64(sample.Cycle), Y: s.y(sample)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("create %s line: %w", s.name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, filepath.Join(cp.outputDir, spec.file))
}

// seriesColors spreads n hues evenly around the colour wheel.
func seriesColors(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		c := colorful.Hsl(360*float64(i)/float64(max(n, 1)), 0.7, 0.5).Clamped()
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// MakePlotOutputDir returns a timestamped run directory under baseDir. The
// source label is reduced to a single path element.
func MakePlotOutputDir(baseDir, source string, now time.Time) string {
	ts := now.Format("20060102_150405")
	if source == "" {
		source = "live"
	}
	return filepath.Join(baseDir, security.SanitizeFilename(source)+"_"+ts)
}
