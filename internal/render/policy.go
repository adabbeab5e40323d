// Package render holds the rendering policy: which colours the point sets
// are drawn in and how the contour "bolts" respond to loudness.
//
// A Policy is a plain value handed to the renderer with every frame; there
// is no package-level colour state. Renderer implementations live in
// subpackages (see render/terminal).
package render

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorMode selects the cloud and bolt colours.
type ColorMode string

const (
	ModeBlue        ColorMode = "blue"         // dark blue cloud, pale blue bolts
	ModeGold        ColorMode = "gold"         // orange cloud, yellow bolts
	ModeBlueSwapped ColorMode = "blue_swapped" // dark blue cloud, yellow bolts
	ModeGoldSwapped ColorMode = "gold_swapped" // orange cloud, pale blue bolts
)

var modeCycle = []ColorMode{ModeBlue, ModeGold, ModeBlueSwapped, ModeGoldSwapped}

// ParseColorMode validates a mode name.
func ParseColorMode(s string) (ColorMode, error) {
	for _, m := range modeCycle {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown colour mode %q", s)
}

// Next returns the following mode in the fixed cycle order.
func (m ColorMode) Next() ColorMode {
	for i, c := range modeCycle {
		if c == m {
			return modeCycle[(i+1)%len(modeCycle)]
		}
	}
	return ModeBlue
}

// Colors is the installation palette.
type Colors struct {
	Blue      colorful.Color
	PaleBlue  colorful.Color
	LightBlue colorful.Color
	DarkBlue  colorful.Color
	Yellow    colorful.Color
	Orange    colorful.Color
	Green     colorful.Color
}

func hex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// BrandColors returns the fixed palette the installation was designed with.
func BrandColors() Colors {
	return Colors{
		Blue:      hex("#0071c5"),
		PaleBlue:  hex("#7ed3f7"),
		LightBlue: hex("#00aeef"),
		DarkBlue:  hex("#004280"),
		Yellow:    hex("#ffda00"),
		Orange:    hex("#fdb813"),
		Green:     hex("#a6ce39"),
	}
}

// Policy is the per-frame rendering policy.
type Policy struct {
	Mode   ColorMode
	Colors Colors

	// Bolt width and alpha are mapped linearly from loudness in [0,1].
	BoltWidthMin float64
	BoltWidthMax float64
	BoltAlphaMin float64
	BoltAlphaMax float64

	ShowCloud     bool
	ShowBolts     bool
	ShowBorder    bool
	ShowParticles bool
}

// DefaultPolicy draws everything in blue mode.
func DefaultPolicy() Policy {
	return Policy{
		Mode:          ModeBlue,
		Colors:        BrandColors(),
		BoltWidthMin:  1,
		BoltWidthMax:  4,
		BoltAlphaMin:  0.3,
		BoltAlphaMax:  1,
		ShowCloud:     true,
		ShowBolts:     true,
		ShowBorder:    true,
		ShowParticles: true,
	}
}

// CloudColor returns the point cloud colour for the current mode.
func (p Policy) CloudColor() colorful.Color {
	switch p.Mode {
	case ModeGold, ModeGoldSwapped:
		return p.Colors.Orange
	default:
		return p.Colors.DarkBlue
	}
}

// BorderColor returns the colour of the bottom-row border points.
func (p Policy) BorderColor() colorful.Color {
	return p.Colors.Green
}

// BoltColor returns the contour point colour for the current mode.
func (p Policy) BoltColor() colorful.Color {
	switch p.Mode {
	case ModeGold, ModeBlueSwapped:
		return p.Colors.Yellow
	default:
		return p.Colors.PaleBlue
	}
}

// BoltStyle is how contour points are drawn for one frame.
type BoltStyle struct {
	Color colorful.Color
	Alpha float64
	Width float64
}

// BoltStyle maps loudness onto bolt width and alpha. Loudness outside [0,1]
// is clamped; a frame without a loudness reading uses 0.
func (p Policy) BoltStyle(loudness float64) BoltStyle {
	l := math.Max(0, math.Min(1, loudness))
	return BoltStyle{
		Color: p.BoltColor(),
		Alpha: p.BoltAlphaMin + l*(p.BoltAlphaMax-p.BoltAlphaMin),
		Width: p.BoltWidthMin + l*(p.BoltWidthMax-p.BoltWidthMin),
	}
}

// Over composites c at the given alpha over bg.
func Over(bg, c colorful.Color, alpha float64) colorful.Color {
	a := math.Max(0, math.Min(1, alpha))
	return bg.BlendRgb(c, a).Clamped()
}
