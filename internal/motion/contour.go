package motion

import (
	"image"
	"math"
)

// Contour is the outer boundary of one connected region of changed pixels.
type Contour struct {
	// Points are the boundary vertices on the pixel-corner lattice, walked
	// with the region on the right-hand side (clockwise on screen).
	Points []image.Point
	// Pixels[i] is the region pixel that owns the edge leaving Points[i].
	// Depth lookups for a vertex use this pixel.
	Pixels []image.Point
	// Area is the shoelace area of the vertex ring.
	Area float64
	// PixelCount is the number of pixels in the region, holes excluded.
	PixelCount int
	// Bounds is the pixel bounding box of the region.
	Bounds image.Rectangle
}

// Len returns the number of vertices.
func (c Contour) Len() int { return len(c.Points) }

// Sample returns the indices 0, stride, 2·stride... of the vertex ring.
// A stride below 1 is treated as 1.
func (c Contour) Sample(stride int) []int {
	if stride < 1 {
		stride = 1
	}
	out := make([]int, 0, (len(c.Points)+stride-1)/stride)
	for i := 0; i < len(c.Points); i += stride {
		out = append(out, i)
	}
	return out
}

// PolygonArea returns the absolute shoelace area of a closed vertex ring.
func PolygonArea(pts []image.Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum int64
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		sum += int64(a.X)*int64(b.Y) - int64(b.X)*int64(a.Y)
	}
	return math.Abs(float64(sum)) / 2
}
