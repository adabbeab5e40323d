// Package testutil provides shared depth and mask fixtures for package
// tests.
package testutil

import (
	"image"
	"testing"

	"github.com/banshee-data/depthdust/internal/depth"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// FlatFrame returns a w×h frame filled with v.
func FlatFrame(w, h int, v uint16) *depth.Frame {
	f := depth.NewFrame(w, h)
	f.Fill(v)
	return f
}

// FrameWithRects returns a flat frame of background with every rectangle
// set to near. Rectangles are clipped to the frame.
func FrameWithRects(w, h int, background, near uint16, rects ...image.Rectangle) *depth.Frame {
	f := FlatFrame(w, h, background)
	for _, r := range rects {
		r = r.Intersect(f.Bounds())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				f.Set(x, y, near)
			}
		}
	}
	return f
}

// RampFrame returns a frame whose sample at (x, y) is base + y*w + x.
func RampFrame(w, h int, base uint16) *depth.Frame {
	f := depth.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Set(x, y, base+uint16(y*w+x))
		}
	}
	return f
}

// MaskWith returns a w×h mask with every rectangle set to foreground.
func MaskWith(w, h int, rects ...image.Rectangle) *depth.Mask {
	m := depth.NewMask(w, h)
	for _, r := range rects {
		m.FillRect(r, depth.Foreground)
	}
	return m
}
