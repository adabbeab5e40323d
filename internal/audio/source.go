package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// OpenWAV decodes the WAV file at path. The caller closes the streamer.
func OpenWAV(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open audio %s: %w", path, err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode audio %s: %w", path, err)
	}
	return s, format, nil
}

type looped struct {
	s   beep.StreamSeeker
	err error
}

// Loop repeats s forever. An empty stream ends immediately.
func Loop(s beep.StreamSeeker) beep.Streamer { return &looped{s: s} }

func (l *looped) Stream(samples [][2]float64) (int, bool) {
	if l.err != nil {
		return 0, false
	}
	n := 0
	for n < len(samples) {
		sn, ok := l.s.Stream(samples[n:])
		n += sn
		if ok && sn > 0 {
			continue
		}
		if err := l.s.Err(); err != nil {
			l.err = err
			return n, n > 0
		}
		if l.s.Position() == 0 {
			return n, n > 0
		}
		if err := l.s.Seek(0); err != nil {
			l.err = err
			return n, n > 0
		}
	}
	return n, true
}

func (l *looped) Err() error { return l.err }

// Pulse is an endless sine tone whose amplitude swells from silence to Peak
// and back once per Period.
type Pulse struct {
	Rate   beep.SampleRate
	Freq   float64
	Period time.Duration
	Peak   float64

	pos int
}

// NewPulse returns a 220 Hz pulse.
func NewPulse(rate beep.SampleRate, period time.Duration, peak float64) *Pulse {
	return &Pulse{Rate: rate, Freq: 220, Period: period, Peak: peak}
}

func (p *Pulse) Stream(samples [][2]float64) (int, bool) {
	rate := float64(p.Rate)
	period := p.Period.Seconds()
	for i := range samples {
		t := float64(p.pos) / rate
		env := p.Peak
		if period > 0 {
			env *= 0.5 * (1 - math.Cos(2*math.Pi*t/period))
		}
		v := env * math.Sin(2*math.Pi*p.Freq*t)
		samples[i][0] = v
		samples[i][1] = v
		p.pos++
	}
	return len(samples), true
}

func (p *Pulse) Err() error { return nil }
