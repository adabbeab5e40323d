package motion

import (
	"errors"
	"fmt"
	"image"

	"github.com/banshee-data/depthdust/internal/depth"
)

// ErrNilMask is returned when either input mask is missing.
var ErrNilMask = errors.New("motion: nil mask")

// Detector holds the difference and label buffers reused across cycles.
// A Detector is not safe for concurrent use.
type Detector struct {
	width  int
	height int
	diff   *depth.Mask
	labels []int32 // 0 = unlabelled, >0 = region label
	queue  []image.Point
}

// NewDetector allocates buffers for masks of the given size. The detector
// resizes itself if later called with masks of a different size.
func NewDetector(width, height int) *Detector {
	d := &Detector{}
	d.ensure(width, height)
	return d
}

func (d *Detector) ensure(width, height int) {
	if d.diff != nil && d.width == width && d.height == height {
		return
	}
	d.width, d.height = width, height
	d.diff = depth.NewMask(width, height)
	d.labels = make([]int32, width*height)
	d.queue = d.queue[:0]
}

// Detect is a one-shot convenience over a fresh Detector.
func Detect(current, previous *depth.Mask, minArea float64) ([]Contour, error) {
	if current == nil || previous == nil {
		return nil, ErrNilMask
	}
	return NewDetector(current.Width(), current.Height()).Detect(current, previous, minArea)
}

// Detect returns the outer contours of every 4-connected region where
// current and previous differ, in raster order of each region's first
// pixel. Contours whose area is below minArea are dropped.
func (d *Detector) Detect(current, previous *depth.Mask, minArea float64) ([]Contour, error) {
	if current == nil || previous == nil {
		return nil, ErrNilMask
	}
	if !current.SameSize(previous) {
		return nil, fmt.Errorf("motion: mask size %dx%d vs %dx%d",
			current.Width(), current.Height(), previous.Width(), previous.Height())
	}
	d.ensure(current.Width(), current.Height())
	if err := depth.AbsDiff(d.diff, current, previous); err != nil {
		return nil, fmt.Errorf("motion: %w", err)
	}
	clear(d.labels)

	var contours []Contour
	var next int32
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			if !d.diff.IsForeground(x, y) || d.labels[y*d.width+x] != 0 {
				continue
			}
			next++
			count, bounds := d.flood(image.Pt(x, y), next)
			pts, pix := d.trace(image.Pt(x, y), next)
			area := PolygonArea(pts)
			if area < minArea {
				continue
			}
			contours = append(contours, Contour{
				Points:     pts,
				Pixels:     pix,
				Area:       area,
				PixelCount: count,
				Bounds:     bounds,
			})
		}
	}
	return contours, nil
}

// flood labels the 4-connected region containing seed with label and
// returns its pixel count and bounding box.
func (d *Detector) flood(seed image.Point, label int32) (int, image.Rectangle) {
	d.queue = append(d.queue[:0], seed)
	d.labels[seed.Y*d.width+seed.X] = label
	bounds := image.Rectangle{Min: seed, Max: seed.Add(image.Pt(1, 1))}
	count := 0

	for head := 0; head < len(d.queue); head++ {
		p := d.queue[head]
		count++
		bounds = bounds.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
		for _, n := range [4]image.Point{image.Pt(p.X+1, p.Y), image.Pt(p.X-1, p.Y), image.Pt(p.X, p.Y+1), image.Pt(p.X, p.Y-1)} {
			if n.X < 0 || n.Y < 0 || n.X >= d.width || n.Y >= d.height {
				continue
			}
			i := n.Y*d.width + n.X
			if d.labels[i] != 0 || !d.diff.IsForeground(n.X, n.Y) {
				continue
			}
			d.labels[i] = label
			d.queue = append(d.queue, n)
		}
	}
	return count, bounds
}

type direction uint8

const (
	east direction = iota
	south
	west
	north
)

var (
	stepX = [4]int{1, 0, -1, 0}
	stepY = [4]int{0, 1, 0, -1}
)

func (dir direction) right() direction { return (dir + 1) % 4 }
func (dir direction) left() direction  { return (dir + 3) % 4 }

// ahead returns the two pixels flanking the edge that leaves corner (cx, cy)
// heading dir. Corner (cx, cy) is the top-left corner of pixel (cx, cy).
func ahead(cx, cy int, dir direction) (left, right image.Point) {
	switch dir {
	case east:
		return image.Pt(cx, cy-1), image.Pt(cx, cy)
	case south:
		return image.Pt(cx, cy), image.Pt(cx-1, cy)
	case west:
		return image.Pt(cx-1, cy), image.Pt(cx-1, cy-1)
	default:
		return image.Pt(cx-1, cy-1), image.Pt(cx, cy-1)
	}
}

func (d *Detector) member(p image.Point, label int32) bool {
	if p.X < 0 || p.Y < 0 || p.X >= d.width || p.Y >= d.height {
		return false
	}
	return d.labels[p.Y*d.width+p.X] == label
}

// trace walks the outer boundary of the region labelled label, starting at
// the top-left corner of its first raster pixel and heading east, keeping
// the region on the right. Every corner is emitted, including those between
// collinear edges.
func (d *Detector) trace(first image.Point, label int32) (pts, pix []image.Point) {
	cx, cy := first.X, first.Y
	dir := east
	limit := 4 * (d.width + 1) * (d.height + 1)

	for n := 0; n < limit; n++ {
		_, owner := ahead(cx, cy, dir)
		pts = append(pts, image.Pt(cx, cy))
		pix = append(pix, owner)

		cx += stepX[dir]
		cy += stepY[dir]

		left, right := ahead(cx, cy, dir)
		switch {
		case !d.member(right, label):
			dir = dir.right()
		case d.member(left, label):
			dir = dir.left()
		}
		if cx == first.X && cy == first.Y && dir == east {
			break
		}
	}
	return pts, pix
}
