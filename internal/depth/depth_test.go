package depth

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInRange_OpenInterval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		v    uint16
		want bool
	}{
		{0, false},
		{1, true},
		{1000, true},
		{1999, true},
		{2000, false},
		{4000, false},
	}
	for _, tt := range tests {
		if got := InRange(tt.v, 0, 2000); got != tt.want {
			t.Errorf("InRange(%d, 0, 2000) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestRemap_NearIsBright(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint8(0), Remap(0, 0, 2000), "lower bound is excluded")
	assert.Equal(t, uint8(0), Remap(2000, 0, 2000), "upper bound is excluded")
	assert.Equal(t, uint8(254), Remap(1, 0, 2000))
	assert.Equal(t, uint8(127), Remap(1000, 0, 2000))
	assert.Greater(t, Remap(100, 0, 2000), Remap(1500, 0, 2000))
}

func TestRemap_EmptyInterval(t *testing.T) {
	t.Parallel()
	for _, v := range []uint16{0, 1, 500, 1000} {
		assert.Equal(t, uint8(0), Remap(v, 500, 500))
		assert.Equal(t, uint8(0), Remap(v, 800, 200))
	}
}

func TestNormalize_BinaryCut(t *testing.T) {
	t.Parallel()
	// Row: out of range low, near, threshold edge, far, out of range high.
	f, err := FrameFromSamples(5, 1, []uint16{0, 200, 1000, 1800, 2500})
	require.NoError(t, err)

	m := Normalize(f, 0, 2000, 128)

	want := []uint8{Background, Foreground, Background, Background, Background}
	for x, w := range want {
		assert.Equalf(t, w, m.At(x, 0), "pixel %d", x)
	}
}

func TestNormalize_OnlyForegroundAndBackground(t *testing.T) {
	t.Parallel()
	f := NewFrame(64, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			f.Set(x, y, uint16((x*97+y*31)%2600))
		}
	}
	m := Normalize(f, 0, 2000, 128)
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			v := m.At(x, y)
			if v != Foreground && v != Background {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
}

func TestNormalizeInto_Deterministic(t *testing.T) {
	t.Parallel()
	f := NewFrame(8, 8)
	f.Fill(300)
	a := Normalize(f, 0, 2000, 128)
	b := NewMask(8, 8)
	b.Set(0, 0, 17)
	require.NoError(t, NormalizeInto(b, f, 0, 2000, 128))
	assert.Equal(t, a.pix, b.pix)
	assert.Equal(t, 64, b.Count())
}

func TestNormalizeInto_SizeMismatch(t *testing.T) {
	t.Parallel()
	err := NormalizeInto(NewMask(4, 4), NewFrame(5, 4), 0, 2000, 128)
	assert.Error(t, err)
}

func TestFrameFromSamples_Validation(t *testing.T) {
	t.Parallel()
	_, err := FrameFromSamples(2, 2, []uint16{1, 2, 3})
	assert.Error(t, err)
	_, err = FrameFromSamples(0, 2, nil)
	assert.Error(t, err)

	src := []uint16{1, 2, 3, 4}
	f, err := FrameFromSamples(2, 2, src)
	require.NoError(t, err)
	src[0] = 99
	assert.Equal(t, uint16(1), f.At(0, 0), "frame must own its buffer")
	assert.Equal(t, uint16(4), f.At(1, 1))
	assert.Equal(t, uint16(0), f.At(2, 0))
	assert.Equal(t, uint16(0), f.At(-1, 0))
}

func TestFrame_CopyAndSamples(t *testing.T) {
	t.Parallel()
	a := NewFrame(3, 2)
	a.Fill(7)
	b := NewFrame(3, 2)
	require.NoError(t, b.CopyFrom(a))
	assert.Equal(t, uint16(7), b.At(2, 1))
	assert.Error(t, b.CopyFrom(NewFrame(2, 3)))
	assert.Error(t, b.CopyFrom(nil))

	out := make([]uint16, b.Len())
	assert.Equal(t, 6, b.ReadSamples(out))
	assert.Error(t, b.WriteSamples(out[:5]))
	out[5] = 42
	require.NoError(t, b.WriteSamples(out))
	assert.Equal(t, uint16(42), b.At(2, 1))

	c := b.Clone()
	c.Set(0, 0, 1)
	assert.Equal(t, uint16(7), b.At(0, 0))
}

func TestAbsDiff(t *testing.T) {
	t.Parallel()
	a := NewMask(4, 4)
	b := NewMask(4, 4)
	a.FillRect(image.Rect(0, 0, 2, 2), Foreground)
	b.FillRect(image.Rect(1, 1, 3, 3), Foreground)

	d := NewMask(4, 4)
	require.NoError(t, AbsDiff(d, a, b))
	// Overlap pixel (1,1) cancels out.
	assert.Equal(t, Background, d.At(1, 1))
	assert.Equal(t, Foreground, d.At(0, 0))
	assert.Equal(t, Foreground, d.At(2, 2))
	assert.Equal(t, 6, d.Count())

	assert.Error(t, AbsDiff(d, a, NewMask(3, 4)))
}

func TestMask_Gray(t *testing.T) {
	t.Parallel()
	m := NewMask(3, 2)
	m.Set(2, 1, Foreground)
	img := m.Gray()
	assert.Equal(t, uint8(255), img.GrayAt(2, 1).Y)
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
}
