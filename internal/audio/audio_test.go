package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

func constant(v float64, n int) beep.Streamer {
	left := n
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left <= 0 {
			return 0, false
		}
		k := min(len(samples), left)
		for i := 0; i < k; i++ {
			samples[i] = [2]float64{v, -v}
		}
		left -= k
		return k, true
	})
}

func TestLoudness(t *testing.T) {
	tests := []struct {
		name    string
		samples [][2]float64
		gain    float64
		want    float64
	}{
		{"empty", nil, 1, 0},
		{"silence", make([][2]float64, 4), 1, 0},
		{"mean of both channels", [][2]float64{{0.2, -0.4}, {0.2, 0}}, 1, 0.2},
		{"gain", [][2]float64{{0.1, 0.1}}, 4, 0.4},
		{"clamped", [][2]float64{{0.5, 0.5}}, 10000, 1},
		{"negative gain", [][2]float64{{0.5, 0.5}}, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Loudness(tt.samples, tt.gain); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Loudness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonitor(t *testing.T) {
	// 1000 Hz at 10 ms per cycle reads 10 samples; 25 samples last 3 calls.
	m := NewMonitor(constant(0.25, 25), 1000, 10*time.Millisecond, 2)
	if m.SamplesPerCycle() != 10 {
		t.Fatalf("SamplesPerCycle() = %d, want 10", m.SamplesPerCycle())
	}
	for i := 0; i < 3; i++ {
		level, ok := m.Level()
		if !ok {
			t.Fatalf("call %d: expected a level", i)
		}
		if math.Abs(level-0.5) > 1e-12 {
			t.Errorf("call %d: level = %v, want 0.5", i, level)
		}
	}
	if _, ok := m.Level(); ok {
		t.Error("expected no level after the stream ends")
	}
	if !m.Done() {
		t.Error("expected Done after exhaustion")
	}
	if m.Err() != nil {
		t.Errorf("unexpected error: %v", m.Err())
	}
}

func TestMonitor_MinimumOneSample(t *testing.T) {
	m := NewMonitor(beep.Silence(-1), 1000, 0, 1)
	if m.SamplesPerCycle() != 1 {
		t.Errorf("SamplesPerCycle() = %d, want 1", m.SamplesPerCycle())
	}
	if level, ok := m.Level(); !ok || level != 0 {
		t.Errorf("Level() = %v, %v; want 0, true", level, ok)
	}
}

func TestLoop(t *testing.T) {
	format := beep.Format{SampleRate: 1000, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)
	buf.Append(constant(0.5, 3))

	l := Loop(buf.Streamer(0, buf.Len()))
	samples := make([][2]float64, 10)
	n, ok := l.Stream(samples)
	if n != 10 || !ok {
		t.Fatalf("Stream() = %d, %v; want 10, true", n, ok)
	}
	for i, s := range samples {
		if math.Abs(s[0]-0.5) > 1e-3 {
			t.Errorf("sample %d = %v, want 0.5", i, s[0])
		}
	}

	empty := beep.NewBuffer(format)
	n, ok = Loop(empty.Streamer(0, 0)).Stream(samples)
	if n != 0 || ok {
		t.Errorf("empty loop Stream() = %d, %v; want 0, false", n, ok)
	}
}

func TestPulse(t *testing.T) {
	p := NewPulse(8000, time.Second, 0.8)
	samples := make([][2]float64, 8000)
	n, ok := p.Stream(samples)
	if n != 8000 || !ok {
		t.Fatalf("Stream() = %d, %v", n, ok)
	}
	if samples[0][0] != 0 {
		t.Errorf("pulse starts silent, got %v", samples[0][0])
	}
	quiet := Loudness(samples[:400], 1)
	loud := Loudness(samples[3800:4200], 1)
	if loud <= quiet {
		t.Errorf("expected the middle of the period to be louder: %v <= %v", loud, quiet)
	}
	for i, s := range samples {
		if math.Abs(s[0]) > 0.8+1e-12 {
			t.Fatalf("sample %d exceeds peak: %v", i, s[0])
		}
	}
}

func TestOpenWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	format := beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, constant(0.5, 800), format); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	s, got, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV() error = %v", err)
	}
	defer s.Close()
	if got.SampleRate != 8000 {
		t.Errorf("sample rate = %v, want 8000", got.SampleRate)
	}
	if s.Len() != 800 {
		t.Errorf("Len() = %d, want 800", s.Len())
	}

	m := NewMonitor(s, got.SampleRate, 10*time.Millisecond, 1)
	level, ok := m.Level()
	if !ok || math.Abs(level-0.5) > 0.01 {
		t.Errorf("Level() = %v, %v; want about 0.5", level, ok)
	}

	if _, _, err := OpenWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
