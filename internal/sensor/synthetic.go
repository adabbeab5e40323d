package sensor

import (
	"fmt"
	"math"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
)

// SyntheticConfig shapes the scene rendered by a Synthetic device.
type SyntheticConfig struct {
	Background uint16  // depth of the empty scene
	BlobDepth  uint16  // depth of the moving blob
	BlobRadius int     // pixels
	Speed      float64 // phase advance per frame, radians
	Focal      float64 // pixels; 0 uses 0.8·width
}

// DefaultSyntheticConfig renders a near blob sweeping across a far wall.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Background: 3000,
		BlobDepth:  900,
		BlobRadius: 40,
		Speed:      0.05,
	}
}

// Synthetic is a Device that renders a blob moving on a Lissajous path.
// Its output depends only on the number of grabs, so runs are repeatable.
type Synthetic struct {
	cfg       SyntheticConfig
	width     int
	height    int
	fps       int
	enabled   map[StreamKind]bool
	capturing bool
	frame     uint64
}

// NewSynthetic returns a synthetic device in the default 480×360 mode.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	return &Synthetic{
		cfg:     cfg,
		width:   480,
		height:  360,
		fps:     60,
		enabled: make(map[StreamKind]bool),
	}
}

func (s *Synthetic) ProbeConfiguration() error { return nil }
func (s *Synthetic) CalibrationValid() bool    { return true }

func (s *Synthetic) EnableStream(kind StreamKind) error {
	switch kind {
	case StreamLeft, StreamRight, StreamDepth:
		s.enabled[kind] = true
		return nil
	}
	return fmt.Errorf("unknown stream %q", kind)
}

func (s *Synthetic) SetResolution(width, height, fps int) error {
	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("unsupported mode %dx%d@%d", width, height, fps)
	}
	s.width, s.height, s.fps = width, height, fps
	return nil
}

func (s *Synthetic) Intrinsics() (projection.Intrinsics, error) {
	focal := s.cfg.Focal
	if focal <= 0 {
		focal = 0.8 * float64(s.width)
	}
	return projection.Rectified(s.width, s.height, focal), nil
}

func (s *Synthetic) StartCapture() error {
	if !s.enabled[StreamDepth] {
		return fmt.Errorf("depth stream not enabled")
	}
	s.capturing = true
	return nil
}

func (s *Synthetic) StopCapture() error {
	s.capturing = false
	return nil
}

func (s *Synthetic) Grab() error {
	if !s.capturing {
		return ErrNotStreaming
	}
	s.frame++
	return nil
}

// Center returns the blob centre for the current frame.
func (s *Synthetic) Center() (x, y int) {
	t := float64(s.frame) * s.cfg.Speed
	cx := float64(s.width)/2 + float64(s.width)/3*math.Sin(t)
	cy := float64(s.height)/2 + float64(s.height)/4*math.Sin(1.7*t)
	return int(math.Round(cx)), int(math.Round(cy))
}

func (s *Synthetic) ReadDepth(dst *depth.Frame) error {
	if dst.Width() != s.width || dst.Height() != s.height {
		return fmt.Errorf("frame is %dx%d, device is %dx%d", dst.Width(), dst.Height(), s.width, s.height)
	}
	dst.Fill(s.cfg.Background)
	cx, cy := s.Center()
	r := s.cfg.BlobRadius
	for y := max(cy-r, 0); y <= min(cy+r, s.height-1); y++ {
		for x := max(cx-r, 0); x <= min(cx+r, s.width-1); x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				dst.Set(x, y, s.cfg.BlobDepth)
			}
		}
	}
	return nil
}

// Disabled is a Device with no hardware behind it. Every step fails with
// ErrNoDevice, so a session opened on it never streams.
type Disabled struct{}

func (Disabled) ProbeConfiguration() error         { return ErrNoDevice }
func (Disabled) CalibrationValid() bool            { return false }
func (Disabled) EnableStream(StreamKind) error     { return ErrNoDevice }
func (Disabled) SetResolution(int, int, int) error { return ErrNoDevice }
func (Disabled) Intrinsics() (projection.Intrinsics, error) {
	return projection.Intrinsics{}, ErrNoDevice
}
func (Disabled) StartCapture() error          { return ErrNoDevice }
func (Disabled) StopCapture() error           { return nil }
func (Disabled) Grab() error                  { return ErrNoDevice }
func (Disabled) ReadDepth(*depth.Frame) error { return ErrNoDevice }
