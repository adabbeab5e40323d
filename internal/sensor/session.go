package sensor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
)

var (
	// ErrNotStreaming is returned when a source stops delivering frames.
	// Device errors that wrap it end a session's stream.
	ErrNotStreaming = errors.New("sensor: source is not streaming")

	// ErrNoDevice is returned by every step of a Disabled device.
	ErrNoDevice = errors.New("sensor: no depth device")

	// ErrInvalidCalibration marks a device whose factory calibration is unusable.
	ErrInvalidCalibration = errors.New("sensor: calibration is invalid")
)

// Source is the frame source contract the pipeline consumes.
type Source interface {
	IsStreaming() bool
	Grab() bool
	DepthFrame() *depth.Frame
	Calibration() projection.Intrinsics
}

// StreamKind names one of the sensor's image streams.
type StreamKind string

const (
	StreamLeft  StreamKind = "left"
	StreamRight StreamKind = "right"
	StreamDepth StreamKind = "depth"
)

// Device is the driver surface a session is built on.
type Device interface {
	ProbeConfiguration() error
	CalibrationValid() bool
	EnableStream(kind StreamKind) error
	SetResolution(width, height, fps int) error
	Intrinsics() (projection.Intrinsics, error)
	StartCapture() error
	StopCapture() error

	// Grab blocks until the next frame set is available.
	Grab() error
	// ReadDepth copies the last grabbed depth image into dst.
	ReadDepth(dst *depth.Frame) error
}

// SessionConfig is the capture mode requested from the device.
type SessionConfig struct {
	Width   int
	Height  int
	FPS     int
	Streams []StreamKind
}

// DefaultSessionConfig is the reference sensor's 480×360 depth mode at
// 60 fps with both infrared streams enabled.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Width:   480,
		Height:  360,
		FPS:     60,
		Streams: []StreamKind{StreamLeft, StreamRight, StreamDepth},
	}
}

// SetupStep identifies one step of Open.
type SetupStep string

const (
	StepProbe        SetupStep = "probe"
	StepCalibration  SetupStep = "calibration"
	StepEnableStream SetupStep = "enable_stream"
	StepResolution   SetupStep = "resolution"
	StepIntrinsics   SetupStep = "intrinsics"
	StepStartCapture SetupStep = "start_capture"
)

// SetupFailure is one failed setup step.
type SetupFailure struct {
	Step SetupStep
	Err  error
}

func (f SetupFailure) Error() string { return fmt.Sprintf("%s: %v", f.Step, f.Err) }

func (f SetupFailure) Unwrap() error { return f.Err }

// SetupReport lists every setup step that failed.
type SetupReport struct {
	Failures []SetupFailure
}

func (r *SetupReport) add(step SetupStep, err error) {
	r.Failures = append(r.Failures, SetupFailure{Step: step, Err: err})
	opsf("setup %s failed: %v", step, err)
}

// OK reports whether every step succeeded.
func (r *SetupReport) OK() bool { return len(r.Failures) == 0 }

// Failed reports whether the given step failed.
func (r *SetupReport) Failed(step SetupStep) bool {
	for _, f := range r.Failures {
		if f.Step == step {
			return true
		}
	}
	return false
}

// Err joins every failure, or returns nil.
func (r *SetupReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Session owns one open capture and its depth buffer. It is used from a
// single goroutine; wrap it in an AsyncSource to grab on another.
type Session struct {
	ID string

	dev       Device
	frame     *depth.Frame
	calib     projection.Intrinsics
	streaming bool
	capturing bool

	grabs      uint64
	grabErrors uint64

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// Open configures dev for cfg. Every step runs even if an earlier one
// failed; the returned session is always usable and reports IsStreaming
// false when the depth stream or capture could not be started. The caller
// must Close the session on every exit path.
func Open(dev Device, cfg SessionConfig) (*Session, *SetupReport) {
	report := &SetupReport{}
	s := &Session{
		ID:    uuid.New().String(),
		dev:   dev,
		frame: depth.NewFrame(max(cfg.Width, 1), max(cfg.Height, 1)),
		calib: projection.Rectified(max(cfg.Width, 1), max(cfg.Height, 1), float64(max(cfg.Width, 1))),
	}

	if err := dev.ProbeConfiguration(); err != nil {
		report.add(StepProbe, err)
	}
	if !dev.CalibrationValid() {
		report.add(StepCalibration, ErrInvalidCalibration)
	}

	depthEnabled := false
	for _, kind := range cfg.Streams {
		if err := dev.EnableStream(kind); err != nil {
			report.add(StepEnableStream, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		if kind == StreamDepth {
			depthEnabled = true
		}
	}

	if err := dev.SetResolution(cfg.Width, cfg.Height, cfg.FPS); err != nil {
		report.add(StepResolution, fmt.Errorf("%dx%d@%d: %w", cfg.Width, cfg.Height, cfg.FPS, err))
	}

	if in, err := dev.Intrinsics(); err != nil {
		report.add(StepIntrinsics, err)
	} else if err := in.Validate(); err != nil {
		report.add(StepIntrinsics, err)
	} else {
		s.calib = in
		if in.Width != s.frame.Width() || in.Height != s.frame.Height() {
			s.frame = depth.NewFrame(in.Width, in.Height)
		}
	}

	if err := dev.StartCapture(); err != nil {
		report.add(StepStartCapture, err)
	} else {
		s.capturing = true
	}

	s.streaming = depthEnabled && s.capturing
	if report.OK() {
		diagf("session %s open: %dx%d@%d fx=%.1f fy=%.1f", s.ID, s.frame.Width(), s.frame.Height(), cfg.FPS, s.calib.Fx, s.calib.Fy)
	} else {
		opsf("session %s open with %d setup failures; streaming=%v", s.ID, len(report.Failures), s.streaming)
	}
	return s, report
}

// IsStreaming reports whether Grab can deliver frames.
func (s *Session) IsStreaming() bool { return s.streaming && !s.closed }

// Grab waits for the next frame and copies its depth image into the
// session buffer. It returns false on any device error; the previous frame
// stays in place. A device error wrapping ErrNotStreaming ends the stream.
func (s *Session) Grab() bool {
	if !s.IsStreaming() {
		return false
	}
	s.grabs++
	if err := s.dev.Grab(); err != nil {
		s.grabErrors++
		if errors.Is(err, ErrNotStreaming) {
			s.streaming = false
			opsf("session %s: stream ended: %v", s.ID, err)
			return false
		}
		tracef("grab %d: %v", s.grabs, err)
		return false
	}
	if err := s.dev.ReadDepth(s.frame); err != nil {
		s.grabErrors++
		tracef("read depth %d: %v", s.grabs, err)
		return false
	}
	return true
}

// DepthFrame returns the session buffer. It is overwritten by every
// successful Grab.
func (s *Session) DepthFrame() *depth.Frame { return s.frame }

// Calibration returns the depth intrinsics, or a rectified estimate when
// the device could not supply them.
func (s *Session) Calibration() projection.Intrinsics { return s.calib }

// GrabErrors returns the number of failed grabs.
func (s *Session) GrabErrors() uint64 { return s.grabErrors }

// Close stops capture. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		if s.capturing {
			s.closeErr = s.dev.StopCapture()
			s.capturing = false
		}
		diagf("session %s closed after %d grabs (%d failed)", s.ID, s.grabs, s.grabErrors)
	})
	return s.closeErr
}
