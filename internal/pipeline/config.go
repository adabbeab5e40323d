package pipeline

import (
	"errors"
	"fmt"

	"github.com/banshee-data/depthdust/internal/config"
	"github.com/banshee-data/depthdust/internal/particles"
	"github.com/banshee-data/depthdust/internal/render"
	"github.com/banshee-data/depthdust/internal/spawner"
)

// Config holds everything a cycle reads. It is replaced wholesale by
// ApplyConfig; nothing in it is mutated by the pipeline.
type Config struct {
	// DepthMin and DepthMax bound the open depth interval used by masking,
	// point set extraction and spawn validation.
	DepthMin  int
	DepthMax  int
	Threshold float64

	MinPolyArea float64

	CloudStride int // subsample step for the cloud point set
	BoltStride  int // vertex step for contour points
	BorderRows  int // bottom rows emitted as border points

	Spawn     spawner.Params
	Particles particles.Config

	TargetFPS int
	Policy    render.Policy
}

// DefaultConfig returns the installation defaults.
func DefaultConfig() Config {
	return Config{
		DepthMin:    0,
		DepthMax:    2000,
		Threshold:   128,
		MinPolyArea: 250,
		CloudStride: 2,
		BoltStride:  1,
		BorderRows:  2,
		Spawn:       spawner.DefaultParams(),
		Particles:   particles.DefaultConfig(),
		TargetFPS:   60,
		Policy:      render.DefaultPolicy(),
	}
}

// Validate reports settings the cycle cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.DepthMax <= c.DepthMin {
		errs = append(errs, fmt.Errorf("depth range (%d, %d) is empty", c.DepthMin, c.DepthMax))
	}
	if c.Particles.Capacity < 0 {
		errs = append(errs, fmt.Errorf("capacity must be non-negative, got %d", c.Particles.Capacity))
	}
	if c.BorderRows < 0 {
		errs = append(errs, fmt.Errorf("border rows must be non-negative, got %d", c.BorderRows))
	}
	return errors.Join(errs...)
}

// spawnParams returns the spawn settings with the shared depth interval.
func (c Config) spawnParams() spawner.Params {
	p := c.Spawn
	p.DepthMin = c.DepthMin
	p.DepthMax = c.DepthMax
	return p
}

func jitter(x, y, z [2]float64) spawner.Jitter {
	return spawner.Jitter{
		X: spawner.Range{Min: x[0], Max: x[1]},
		Y: spawner.Range{Min: y[0], Max: y[1]},
		Z: spawner.Range{Min: z[0], Max: z[1]},
	}
}

// ConfigFromTuning converts a tuning file into a cycle configuration. A nil
// tuning config yields the defaults.
func ConfigFromTuning(t *config.TuningConfig) (Config, error) {
	if t == nil {
		t = config.EmptyTuningConfig()
	}

	palette, err := particles.NewPalette(
		t.GetPaletteStandardStart(), t.GetPaletteStandardEnd(),
		t.GetPaletteAccentStart(), t.GetPaletteAccentEnd(),
	)
	if err != nil {
		return Config{}, fmt.Errorf("palette: %w", err)
	}
	mode, err := render.ParseColorMode(t.GetColorMode())
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.DepthMin = t.GetDepthMin()
	cfg.DepthMax = t.GetDepthMax()
	cfg.Threshold = t.GetThreshold()
	cfg.MinPolyArea = t.GetMinPolyArea()
	cfg.CloudStride = t.GetCloudStride()
	cfg.BoltStride = t.GetBoltStride()
	cfg.BorderRows = t.GetBorderRows()
	cfg.TargetFPS = t.GetTargetFPS()
	cfg.Policy.Mode = mode

	gateLevel, gate := t.GetSpawnGateLevel()
	cfg.Spawn = spawner.Params{
		Interval:               t.GetSpawnInterval(),
		Stride:                 t.GetSpawnStride(),
		HeightCutoff:           t.GetHeightCutoff(),
		GateEnabled:            gate,
		GateLevel:              gateLevel,
		PreviousForegroundOnly: t.GetPreviousForegroundOnly(),
		Ages:                   particles.AgeRange{Min: t.GetAgeMin(), Max: t.GetAgeMax()},
		AlphaMax:               t.GetAlphaMax(),
		Velocity:               jitter(t.GetVelocityX(), t.GetVelocityY(), t.GetVelocityZ()),
		AccentChance:           t.GetAccentChance(),
		AccentAge:              t.GetAccentAge(),
		AccentVelocity:         jitter(t.GetAccentVelocityX(), t.GetAccentVelocityY(), t.GetAccentVelocityZ()),
	}
	cfg.Spawn.DepthMin, cfg.Spawn.DepthMax = cfg.DepthMin, cfg.DepthMax

	floorHeight, floor := t.GetFloorHeight()
	cfg.Particles = particles.Config{
		Capacity: t.GetCapacity(),
		Damping: particles.Damping{
			Factor:       t.GetDamping(),
			FloorEnabled: floor,
			FloorHeight:  floorHeight,
			FloorFactor:  t.GetFloorDamping(),
		},
		Palette: palette,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// TuningReloader adapts a tuning file watcher to the Reloader interface.
type TuningReloader struct {
	Watcher *config.Watcher
}

// Reload polls the watcher and converts a changed file.
func (r TuningReloader) Reload() (Config, bool, error) {
	t, changed, err := r.Watcher.Poll()
	if err != nil || !changed {
		return Config{}, false, err
	}
	cfg, err := ConfigFromTuning(t)
	if err != nil {
		return Config{}, false, fmt.Errorf("%s: %w", r.Watcher.Path(), err)
	}
	return cfg, true, nil
}
