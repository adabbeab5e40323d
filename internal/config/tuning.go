package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Colour modes understood by the renderer policy.
const (
	ColorModeBlue        = "blue"
	ColorModeGold        = "gold"
	ColorModeBlueSwapped = "blue_swapped"
	ColorModeGoldSwapped = "gold_swapped"
)

// TuningConfig represents the root configuration for tuning parameters.
// Every field is optional; the Get* accessors supply the installation
// defaults for fields left out of the JSON, so partial files are safe.
type TuningConfig struct {
	// Depth preprocessing
	DepthMin  *int     `json:"depth_min,omitempty"`
	DepthMax  *int     `json:"depth_max,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`

	// Motion detection
	MinPolyArea *float64 `json:"min_poly_area,omitempty"`

	// Spawning
	SpawnInterval          *int        `json:"spawn_interval,omitempty"`
	SpawnStride            *int        `json:"spawn_stride,omitempty"`
	HeightCutoff           *float64    `json:"height_cutoff,omitempty"`
	SpawnGateLevel         *float64    `json:"spawn_gate_level,omitempty"` // unset = no gate
	PreviousForegroundOnly *bool       `json:"previous_foreground_only,omitempty"`
	AgeMin                 *int        `json:"age_min,omitempty"`
	AgeMax                 *int        `json:"age_max,omitempty"`
	AlphaMax               *float64    `json:"alpha_max,omitempty"`
	VelocityX              *[2]float64 `json:"velocity_x,omitempty"`
	VelocityY              *[2]float64 `json:"velocity_y,omitempty"`
	VelocityZ              *[2]float64 `json:"velocity_z,omitempty"`
	AccentChance           *float64    `json:"accent_chance,omitempty"`
	AccentAge              *int        `json:"accent_age,omitempty"`
	AccentVelocityX        *[2]float64 `json:"accent_velocity_x,omitempty"`
	AccentVelocityY        *[2]float64 `json:"accent_velocity_y,omitempty"`
	AccentVelocityZ        *[2]float64 `json:"accent_velocity_z,omitempty"`
	Seed                   *int64      `json:"seed,omitempty"` // unset = seeded from the clock

	// Particle system
	Capacity     *int     `json:"capacity,omitempty"`
	Damping      *float64 `json:"damping,omitempty"`
	FloorHeight  *float64 `json:"floor_height,omitempty"` // unset = no floor
	FloorDamping *float64 `json:"floor_damping,omitempty"`

	// Point sets
	CloudStride *int `json:"cloud_stride,omitempty"`
	BoltStride  *int `json:"bolt_stride,omitempty"`
	BorderRows  *int `json:"border_rows,omitempty"`

	// Runtime
	TargetFPS    *int     `json:"target_fps,omitempty"`
	AsyncCapture *bool    `json:"async_capture,omitempty"`
	AudioGain    *float64 `json:"audio_gain,omitempty"`

	// Rendering
	ColorMode            *string `json:"color_mode,omitempty"`
	PaletteStandardStart *string `json:"palette_standard_start,omitempty"`
	PaletteStandardEnd   *string `json:"palette_standard_end,omitempty"`
	PaletteAccentStart   *string `json:"palette_accent_start,omitempty"`
	PaletteAccentEnd     *string `json:"palette_accent_end,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64     { return &v }
func ptrBool(v bool) *bool              { return &v }
func ptrString(v string) *string        { return &v }
func ptrInt(v int) *int                 { return &v }
func ptrRange(a, b float64) *[2]float64 { return &[2]float64{a, b} }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field that has a
// default populated. Optional features (gate, floor, seed) stay unset.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	vx, vy, vz := e.GetVelocityX(), e.GetVelocityY(), e.GetVelocityZ()
	ax, ay, az := e.GetAccentVelocityX(), e.GetAccentVelocityY(), e.GetAccentVelocityZ()
	return &TuningConfig{
		DepthMin:               ptrInt(e.GetDepthMin()),
		DepthMax:               ptrInt(e.GetDepthMax()),
		Threshold:              ptrFloat64(e.GetThreshold()),
		MinPolyArea:            ptrFloat64(e.GetMinPolyArea()),
		SpawnInterval:          ptrInt(e.GetSpawnInterval()),
		SpawnStride:            ptrInt(e.GetSpawnStride()),
		HeightCutoff:           ptrFloat64(e.GetHeightCutoff()),
		PreviousForegroundOnly: ptrBool(e.GetPreviousForegroundOnly()),
		AgeMin:                 ptrInt(e.GetAgeMin()),
		AgeMax:                 ptrInt(e.GetAgeMax()),
		AlphaMax:               ptrFloat64(e.GetAlphaMax()),
		VelocityX:              ptrRange(vx[0], vx[1]),
		VelocityY:              ptrRange(vy[0], vy[1]),
		VelocityZ:              ptrRange(vz[0], vz[1]),
		AccentChance:           ptrFloat64(e.GetAccentChance()),
		AccentAge:              ptrInt(e.GetAccentAge()),
		AccentVelocityX:        ptrRange(ax[0], ax[1]),
		AccentVelocityY:        ptrRange(ay[0], ay[1]),
		AccentVelocityZ:        ptrRange(az[0], az[1]),
		Capacity:               ptrInt(e.GetCapacity()),
		Damping:                ptrFloat64(e.GetDamping()),
		FloorDamping:           ptrFloat64(e.GetFloorDamping()),
		CloudStride:            ptrInt(e.GetCloudStride()),
		BoltStride:             ptrInt(e.GetBoltStride()),
		BorderRows:             ptrInt(e.GetBorderRows()),
		TargetFPS:              ptrInt(e.GetTargetFPS()),
		AsyncCapture:           ptrBool(e.GetAsyncCapture()),
		AudioGain:              ptrFloat64(e.GetAudioGain()),
		ColorMode:              ptrString(e.GetColorMode()),
		PaletteStandardStart:   ptrString(e.GetPaletteStandardStart()),
		PaletteStandardEnd:     ptrString(e.GetPaletteStandardEnd()),
		PaletteAccentStart:     ptrString(e.GetPaletteAccentStart()),
		PaletteAccentEnd:       ptrString(e.GetPaletteAccentEnd()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseTuningConfig(data)
}

// ParseTuningConfig decodes and validates a JSON document. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("config too large: %d bytes (max %d)", len(data), maxFileSize)
	}
	cfg := EmptyTuningConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SaveTuningConfig writes cfg as indented JSON. The path must end in .json.
func SaveTuningConfig(path string, cfg *TuningConfig) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(cleanPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/render/terminal/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Checks use the
// effective values, so a file that sets only depth_max is compared against
// the default depth_min.
func (c *TuningConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.GetDepthMin() >= 0, "depth_min must be non-negative, got %d", c.GetDepthMin())
	check(c.GetDepthMin() < c.GetDepthMax(), "depth_min (%d) must be below depth_max (%d)", c.GetDepthMin(), c.GetDepthMax())
	check(c.GetDepthMax() <= 65535, "depth_max must fit a 16-bit sample, got %d", c.GetDepthMax())
	check(c.GetThreshold() >= 0 && c.GetThreshold() <= 255, "threshold must be between 0 and 255, got %f", c.GetThreshold())
	check(c.GetMinPolyArea() >= 0, "min_poly_area must be non-negative, got %f", c.GetMinPolyArea())
	check(c.GetSpawnInterval() >= 1, "spawn_interval must be at least 1, got %d", c.GetSpawnInterval())
	check(c.GetSpawnStride() >= 1, "spawn_stride must be at least 1, got %d", c.GetSpawnStride())
	check(c.GetCapacity() >= 0, "capacity must be non-negative, got %d", c.GetCapacity())
	check(c.GetAgeMin() >= 1, "age_min must be at least 1, got %d", c.GetAgeMin())
	check(c.GetAgeMin() <= c.GetAgeMax(), "age_min (%d) must not exceed age_max (%d)", c.GetAgeMin(), c.GetAgeMax())
	check(c.GetAccentAge() >= 1, "accent_age must be at least 1, got %d", c.GetAccentAge())
	check(unit(c.GetAlphaMax()), "alpha_max must be between 0 and 1, got %f", c.GetAlphaMax())
	check(unit(c.GetAccentChance()), "accent_chance must be between 0 and 1, got %f", c.GetAccentChance())
	check(unit(c.GetDamping()), "damping must be between 0 and 1, got %f", c.GetDamping())
	check(unit(c.GetFloorDamping()), "floor_damping must be between 0 and 1, got %f", c.GetFloorDamping())
	if level, ok := c.GetSpawnGateLevel(); ok {
		check(unit(level), "spawn_gate_level must be between 0 and 1, got %f", level)
	}
	check(c.GetCloudStride() >= 1, "cloud_stride must be at least 1, got %d", c.GetCloudStride())
	check(c.GetBoltStride() >= 1, "bolt_stride must be at least 1, got %d", c.GetBoltStride())
	check(c.GetBorderRows() >= 0, "border_rows must be non-negative, got %d", c.GetBorderRows())
	check(c.GetTargetFPS() >= 1 && c.GetTargetFPS() <= 240, "target_fps must be between 1 and 240, got %d", c.GetTargetFPS())
	check(c.GetAudioGain() > 0, "audio_gain must be positive, got %f", c.GetAudioGain())

	switch mode := c.GetColorMode(); mode {
	case ColorModeBlue, ColorModeGold, ColorModeBlueSwapped, ColorModeGoldSwapped:
	default:
		errs = append(errs, fmt.Errorf("unknown color_mode %q", mode))
	}
	for _, p := range [][2]string{
		{"palette_standard_start", c.GetPaletteStandardStart()},
		{"palette_standard_end", c.GetPaletteStandardEnd()},
		{"palette_accent_start", c.GetPaletteAccentStart()},
		{"palette_accent_end", c.GetPaletteAccentEnd()},
	} {
		if _, err := colorful.Hex(p[1]); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid colour %q", p[0], p[1]))
		}
	}
	return errors.Join(errs...)
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
