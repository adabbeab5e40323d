package depth

import (
	"fmt"
	"image"
)

// Frame is a W×H grid of range samples in sensor depth units, stored
// row-major. A frame owns its buffer; samples enter and leave it by copy
// only, so no caller ever holds a pointer into another component's memory.
type Frame struct {
	width   int
	height  int
	samples []uint16
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		width:   width,
		height:  height,
		samples: make([]uint16, width*height),
	}
}

// FrameFromSamples builds a frame from a row-major sample slice. The slice is
// copied.
func FrameFromSamples(width, height int, samples []uint16) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("sample count %d does not match %dx%d", len(samples), width, height)
	}
	f := NewFrame(width, height)
	copy(f.samples, samples)
	return f, nil
}

func (f *Frame) Width() int  { return f.width }
func (f *Frame) Height() int { return f.height }

// Len returns the number of samples in the frame.
func (f *Frame) Len() int { return len(f.samples) }

// Bounds returns the pixel rectangle covered by the frame.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.width, f.height) }

// At returns the sample at (x, y), or 0 when the coordinate is outside the
// frame. Zero is never inside the open depth interval used downstream, so an
// out-of-bounds read is indistinguishable from a missing sample.
func (f *Frame) At(x, y int) uint16 {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return 0
	}
	return f.samples[y*f.width+x]
}

// Set writes one sample. Out-of-bounds writes are ignored.
func (f *Frame) Set(x, y int, v uint16) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	f.samples[y*f.width+x] = v
}

// Fill sets every sample to v.
func (f *Frame) Fill(v uint16) {
	for i := range f.samples {
		f.samples[i] = v
	}
}

// SameSize reports whether two frames have identical dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return o != nil && f.width == o.width && f.height == o.height
}

// CopyFrom overwrites f with the samples of src. Both frames must have the
// same dimensions.
func (f *Frame) CopyFrom(src *Frame) error {
	if src == nil {
		return fmt.Errorf("nil source frame")
	}
	if !f.SameSize(src) {
		return sizeMismatch(f.width, f.height, src.width, src.height)
	}
	copy(f.samples, src.samples)
	return nil
}

// ReadSamples copies the row-major samples into dst and returns the number
// copied.
func (f *Frame) ReadSamples(dst []uint16) int {
	return copy(dst, f.samples)
}

// WriteSamples replaces the frame contents with a row-major sample slice of
// exactly Len() values.
func (f *Frame) WriteSamples(src []uint16) error {
	if len(src) != len(f.samples) {
		return fmt.Errorf("sample count %d does not match %dx%d", len(src), f.width, f.height)
	}
	copy(f.samples, src)
	return nil
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() *Frame {
	c := NewFrame(f.width, f.height)
	copy(c.samples, f.samples)
	return c
}

func sizeMismatch(w, h, ow, oh int) error {
	return fmt.Errorf("size mismatch: %dx%d vs %dx%d", w, h, ow, oh)
}
