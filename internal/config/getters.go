package config

// Defaults for every tunable, taken from the original installation's panel.
const (
	defaultDepthMin      = 0
	defaultDepthMax      = 2000
	defaultThreshold     = 128.0
	defaultMinPolyArea   = 250.0
	defaultSpawnInterval = 5
	defaultSpawnStride   = 4
	defaultHeightCutoff  = 50.0
	defaultAgeMin        = 30
	defaultAgeMax        = 120
	defaultAlphaMax      = 0.15
	defaultAccentChance  = 0.05
	defaultAccentAge     = 180
	defaultCapacity      = 5000
	defaultDamping       = 0.99
	defaultFloorDamping  = 0.5
	defaultCloudStride   = 2
	defaultBoltStride    = 1
	defaultBorderRows    = 2
	defaultTargetFPS     = 60
	defaultAudioGain     = 10000.0

	defaultPaletteStandardStart = "#fdb813"
	defaultPaletteStandardEnd   = "#004280"
	defaultPaletteAccentStart   = "#ffffff"
	defaultPaletteAccentEnd     = "#7ed3f7"
)

// GetDepthMin returns the depth_min value or the default.
func (c *TuningConfig) GetDepthMin() int {
	if c.DepthMin == nil {
		return defaultDepthMin
	}
	return *c.DepthMin
}

// GetDepthMax returns the depth_max value or the default.
func (c *TuningConfig) GetDepthMax() int {
	if c.DepthMax == nil {
		return defaultDepthMax
	}
	return *c.DepthMax
}

// GetThreshold returns the threshold value or the default.
func (c *TuningConfig) GetThreshold() float64 {
	if c.Threshold == nil {
		return defaultThreshold
	}
	return *c.Threshold
}

// GetMinPolyArea returns the min_poly_area value or the default.
func (c *TuningConfig) GetMinPolyArea() float64 {
	if c.MinPolyArea == nil {
		return defaultMinPolyArea
	}
	return *c.MinPolyArea
}

// GetSpawnInterval returns the spawn_interval value or the default.
func (c *TuningConfig) GetSpawnInterval() int {
	if c.SpawnInterval == nil {
		return defaultSpawnInterval
	}
	return *c.SpawnInterval
}

// GetSpawnStride returns the spawn_stride value or the default.
func (c *TuningConfig) GetSpawnStride() int {
	if c.SpawnStride == nil {
		return defaultSpawnStride
	}
	return *c.SpawnStride
}

// GetHeightCutoff returns the height_cutoff value or the default.
func (c *TuningConfig) GetHeightCutoff() float64 {
	if c.HeightCutoff == nil {
		return defaultHeightCutoff
	}
	return *c.HeightCutoff
}

// GetSpawnGateLevel returns the loudness gate level and whether a gate is
// configured at all.
func (c *TuningConfig) GetSpawnGateLevel() (float64, bool) {
	if c.SpawnGateLevel == nil {
		return 0, false
	}
	return *c.SpawnGateLevel, true
}

// GetPreviousForegroundOnly returns the previous_foreground_only value or the default.
func (c *TuningConfig) GetPreviousForegroundOnly() bool {
	if c.PreviousForegroundOnly == nil {
		return false
	}
	return *c.PreviousForegroundOnly
}

// GetAgeMin returns the age_min value or the default.
func (c *TuningConfig) GetAgeMin() int {
	if c.AgeMin == nil {
		return defaultAgeMin
	}
	return *c.AgeMin
}

// GetAgeMax returns the age_max value or the default.
func (c *TuningConfig) GetAgeMax() int {
	if c.AgeMax == nil {
		return defaultAgeMax
	}
	return *c.AgeMax
}

// GetAlphaMax returns the alpha_max value or the default.
func (c *TuningConfig) GetAlphaMax() float64 {
	if c.AlphaMax == nil {
		return defaultAlphaMax
	}
	return *c.AlphaMax
}

func rangeOr(r *[2]float64, lo, hi float64) [2]float64 {
	if r == nil {
		return [2]float64{lo, hi}
	}
	return *r
}

// GetVelocityX returns the velocity_x jitter range or the default.
func (c *TuningConfig) GetVelocityX() [2]float64 { return rangeOr(c.VelocityX, -0.15, 0.15) }

// GetVelocityY returns the velocity_y jitter range or the default.
func (c *TuningConfig) GetVelocityY() [2]float64 { return rangeOr(c.VelocityY, -6, -2) }

// GetVelocityZ returns the velocity_z jitter range or the default.
func (c *TuningConfig) GetVelocityZ() [2]float64 { return rangeOr(c.VelocityZ, -1, 0) }

// GetAccentVelocityX returns the accent_velocity_x jitter range or the default.
func (c *TuningConfig) GetAccentVelocityX() [2]float64 {
	return rangeOr(c.AccentVelocityX, -0.15, 0.15)
}

// GetAccentVelocityY returns the accent_velocity_y jitter range or the default.
func (c *TuningConfig) GetAccentVelocityY() [2]float64 {
	return rangeOr(c.AccentVelocityY, -5.9, -1.5)
}

// GetAccentVelocityZ returns the accent_velocity_z jitter range or the default.
func (c *TuningConfig) GetAccentVelocityZ() [2]float64 {
	return rangeOr(c.AccentVelocityZ, -1, 0)
}

// GetAccentChance returns the accent_chance value or the default.
func (c *TuningConfig) GetAccentChance() float64 {
	if c.AccentChance == nil {
		return defaultAccentChance
	}
	return *c.AccentChance
}

// GetAccentAge returns the accent_age value or the default.
func (c *TuningConfig) GetAccentAge() int {
	if c.AccentAge == nil {
		return defaultAccentAge
	}
	return *c.AccentAge
}

// GetSeed returns the random seed and whether one is configured.
func (c *TuningConfig) GetSeed() (int64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetCapacity returns the capacity value or the default.
func (c *TuningConfig) GetCapacity() int {
	if c.Capacity == nil {
		return defaultCapacity
	}
	return *c.Capacity
}

// GetDamping returns the damping value or the default.
func (c *TuningConfig) GetDamping() float64 {
	if c.Damping == nil {
		return defaultDamping
	}
	return *c.Damping
}

// GetFloorHeight returns the floor height and whether the floor is enabled.
func (c *TuningConfig) GetFloorHeight() (float64, bool) {
	if c.FloorHeight == nil {
		return 0, false
	}
	return *c.FloorHeight, true
}

// GetFloorDamping returns the floor_damping value or the default.
func (c *TuningConfig) GetFloorDamping() float64 {
	if c.FloorDamping == nil {
		return defaultFloorDamping
	}
	return *c.FloorDamping
}

// GetCloudStride returns the cloud_stride value or the default.
func (c *TuningConfig) GetCloudStride() int {
	if c.CloudStride == nil {
		return defaultCloudStride
	}
	return *c.CloudStride
}

// GetBoltStride returns the bolt_stride value or the default.
func (c *TuningConfig) GetBoltStride() int {
	if c.BoltStride == nil {
		return defaultBoltStride
	}
	return *c.BoltStride
}

// GetBorderRows returns the border_rows value or the default.
func (c *TuningConfig) GetBorderRows() int {
	if c.BorderRows == nil {
		return defaultBorderRows
	}
	return *c.BorderRows
}

// GetTargetFPS returns the target_fps value or the default.
func (c *TuningConfig) GetTargetFPS() int {
	if c.TargetFPS == nil {
		return defaultTargetFPS
	}
	return *c.TargetFPS
}

// GetAsyncCapture returns the async_capture value or the default.
func (c *TuningConfig) GetAsyncCapture() bool {
	if c.AsyncCapture == nil {
		return false
	}
	return *c.AsyncCapture
}

// GetAudioGain returns the audio_gain value or the default. The gain scales
// mean absolute amplitude into the [0,1] loudness range.
func (c *TuningConfig) GetAudioGain() float64 {
	if c.AudioGain == nil {
		return defaultAudioGain
	}
	return *c.AudioGain
}

// GetColorMode returns the color_mode value or the default.
func (c *TuningConfig) GetColorMode() string {
	if c.ColorMode == nil {
		return ColorModeBlue
	}
	return *c.ColorMode
}

// GetPaletteStandardStart returns the palette_standard_start value or the default.
func (c *TuningConfig) GetPaletteStandardStart() string {
	if c.PaletteStandardStart == nil {
		return defaultPaletteStandardStart
	}
	return *c.PaletteStandardStart
}

// GetPaletteStandardEnd returns the palette_standard_end value or the default.
func (c *TuningConfig) GetPaletteStandardEnd() string {
	if c.PaletteStandardEnd == nil {
		return defaultPaletteStandardEnd
	}
	return *c.PaletteStandardEnd
}

// GetPaletteAccentStart returns the palette_accent_start value or the default.
func (c *TuningConfig) GetPaletteAccentStart() string {
	if c.PaletteAccentStart == nil {
		return defaultPaletteAccentStart
	}
	return *c.PaletteAccentStart
}

// GetPaletteAccentEnd returns the palette_accent_end value or the default.
func (c *TuningConfig) GetPaletteAccentEnd() string {
	if c.PaletteAccentEnd == nil {
		return defaultPaletteAccentEnd
	}
	return *c.PaletteAccentEnd
}
