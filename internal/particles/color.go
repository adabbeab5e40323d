package particles

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBA is a straight-alpha colour with every channel in [0,1].
type RGBA struct {
	colorful.Color
	A float64
}

// Lerp returns a*(1-t) + b*t on all four channels. The endpoints are exact:
// Lerp(a, b, 0) == a and Lerp(a, b, 1) == b.
func Lerp(a, b RGBA, t float64) RGBA {
	s := 1 - t
	return RGBA{
		Color: colorful.Color{
			R: a.R*s + b.R*t,
			G: a.G*s + b.G*t,
			B: a.B*s + b.B*t,
		},
		A: a.A*s + b.A*t,
	}
}

// WithAlpha returns c with its alpha replaced.
func (c RGBA) WithAlpha(a float64) RGBA {
	c.A = a
	return c
}

// ParseHex parses "#rrggbb" (or "#rgb") into an RGBA with the given alpha.
func ParseHex(s string, alpha float64) (RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGBA{}, fmt.Errorf("parse colour %q: %w", s, err)
	}
	return RGBA{Color: c, A: alpha}, nil
}

func mustHex(s string, alpha float64) RGBA {
	c, err := ParseHex(s, alpha)
	if err != nil {
		panic(err)
	}
	return c
}

// Ramp is the colour a particle fades through over its life: StartColor at
// birth, EndColor at death.
type Ramp struct {
	Start RGBA
	End   RGBA
}

// Palette holds one ramp per variant.
type Palette struct {
	Standard Ramp
	Accent   Ramp
}

// Ramp returns the ramp for v.
func (p Palette) Ramp(v Variant) Ramp {
	if v == VariantAccent {
		return p.Accent
	}
	return p.Standard
}

// Default palette colours. The start alpha of a ramp is replaced at spawn
// time by a value drawn from the spawner's alpha range.
const (
	DefaultStandardStart = "#fdb813" // warm orange
	DefaultStandardEnd   = "#004280" // dark blue
	DefaultAccentStart   = "#ffffff"
	DefaultAccentEnd     = "#7ed3f7" // pale blue
)

// DefaultPalette is the warm-to-dark standard ramp and the
// bright-to-transparent accent ramp.
func DefaultPalette() Palette {
	return Palette{
		Standard: Ramp{
			Start: mustHex(DefaultStandardStart, 1),
			End:   mustHex(DefaultStandardEnd, 0),
		},
		Accent: Ramp{
			Start: mustHex(DefaultAccentStart, 1),
			End:   mustHex(DefaultAccentEnd, 0),
		},
	}
}

// NewPalette builds a palette from four hex colours. End colours are fully
// transparent.
func NewPalette(standardStart, standardEnd, accentStart, accentEnd string) (Palette, error) {
	var p Palette
	var err error
	if p.Standard.Start, err = ParseHex(standardStart, 1); err != nil {
		return Palette{}, err
	}
	if p.Standard.End, err = ParseHex(standardEnd, 0); err != nil {
		return Palette{}, err
	}
	if p.Accent.Start, err = ParseHex(accentStart, 1); err != nil {
		return Palette{}, err
	}
	if p.Accent.End, err = ParseHex(accentEnd, 0); err != nil {
		return Palette{}, err
	}
	return p, nil
}
