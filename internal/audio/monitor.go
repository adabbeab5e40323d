package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// Monitor pulls one cycle of samples per Level call. It is not safe for
// concurrent use.
type Monitor struct {
	streamer beep.Streamer
	gain     float64
	buf      [][2]float64
	done     bool
	reads    uint64
}

// NewMonitor returns a monitor reading period worth of samples at rate per
// Level call. At least one sample is read per call.
func NewMonitor(s beep.Streamer, rate beep.SampleRate, period time.Duration, gain float64) *Monitor {
	n := max(rate.N(period), 1)
	return &Monitor{
		streamer: s,
		gain:     gain,
		buf:      make([][2]float64, n),
	}
}

// Level returns the loudness of the next cycle of samples. ok is false once
// the stream is exhausted.
func (m *Monitor) Level() (level float64, ok bool) {
	if m.done {
		return 0, false
	}
	n, more := m.streamer.Stream(m.buf)
	if !more {
		m.done = true
	}
	if n == 0 {
		return 0, false
	}
	m.reads++
	return Loudness(m.buf[:n], m.gain), true
}

// Err returns the stream error, if any.
func (m *Monitor) Err() error { return m.streamer.Err() }

// Done reports whether the stream has ended.
func (m *Monitor) Done() bool { return m.done }

// SamplesPerCycle returns how many samples each Level call reads.
func (m *Monitor) SamplesPerCycle() int { return len(m.buf) }

// Loudness is the mean absolute amplitude of samples, averaged over both
// channels, times gain and clamped to [0, 1].
func Loudness(samples [][2]float64, gain float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += (math.Abs(s[0]) + math.Abs(s[1])) / 2
	}
	v := sum / float64(len(samples)) * gain
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
