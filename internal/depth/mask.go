package depth

import (
	"fmt"
	"image"
)

const (
	// Background is the mask value for pixels outside the foreground.
	Background uint8 = 0
	// Foreground is the mask value for pixels that passed the binary cut.
	Foreground uint8 = 255
)

// Mask is a W×H grid of 8-bit values, row-major. After Normalize every value
// is either Background or Foreground.
type Mask struct {
	width  int
	height int
	pix    []uint8
}

// NewMask allocates a mask with every pixel set to Background.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{width: width, height: height, pix: make([]uint8, width*height)}
}

func (m *Mask) Width() int  { return m.width }
func (m *Mask) Height() int { return m.height }

// Bounds returns the pixel rectangle covered by the mask.
func (m *Mask) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// At returns the value at (x, y), Background outside the mask.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return Background
	}
	return m.pix[y*m.width+x]
}

// IsForeground reports whether (x, y) is inside the mask and nonzero.
func (m *Mask) IsForeground(x, y int) bool {
	return m.At(x, y) != Background
}

// Set writes one value. Out-of-bounds writes are ignored.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.pix[y*m.width+x] = v
}

// FillRect sets every pixel of r that lies inside the mask to v.
func (m *Mask) FillRect(r image.Rectangle, v uint8) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.pix[y*m.width : (y+1)*m.width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = v
		}
	}
}

// Clear resets every pixel to Background.
func (m *Mask) Clear() {
	clear(m.pix)
}

// Count returns the number of nonzero pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.pix {
		if v != Background {
			n++
		}
	}
	return n
}

// SameSize reports whether two masks have identical dimensions.
func (m *Mask) SameSize(o *Mask) bool {
	return o != nil && m.width == o.width && m.height == o.height
}

// CopyFrom overwrites m with the contents of src.
func (m *Mask) CopyFrom(src *Mask) error {
	if src == nil {
		return fmt.Errorf("nil source mask")
	}
	if !m.SameSize(src) {
		return sizeMismatch(m.width, m.height, src.width, src.height)
	}
	copy(m.pix, src.pix)
	return nil
}

// AbsDiff writes |a - b| per pixel into dst. All three masks must share
// dimensions; dst may alias neither input.
func AbsDiff(dst, a, b *Mask) error {
	if a == nil || b == nil || dst == nil {
		return fmt.Errorf("nil mask in difference")
	}
	if !a.SameSize(b) {
		return sizeMismatch(a.width, a.height, b.width, b.height)
	}
	if !dst.SameSize(a) {
		return sizeMismatch(dst.width, dst.height, a.width, a.height)
	}
	for i := range a.pix {
		va, vb := a.pix[i], b.pix[i]
		if va >= vb {
			dst.pix[i] = va - vb
		} else {
			dst.pix[i] = vb - va
		}
	}
	return nil
}

// Gray returns a copy of the mask as an image, for debug output.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(m.Bounds())
	for y := 0; y < m.height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+m.width], m.pix[y*m.width:(y+1)*m.width])
	}
	return img
}
