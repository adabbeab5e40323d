// Package projection maps depth-image pixels into 3D camera space.
//
// The returned points use a y-up convention: the image row axis points down,
// so the camera-space vertical coordinate is negated on the way out. CameraY
// recovers the un-inverted value for callers that gate on the sensor's own
// vertical axis.
package projection

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point3D is a camera-space coordinate in sensor depth units, y up.
type Point3D = r3.Vec

// DistortionModel selects how pixel coordinates are undistorted before
// back-projection.
type DistortionModel string

const (
	// DistortionNone is used for rectified streams.
	DistortionNone DistortionModel = "none"
	// DistortionBrownConrady applies the inverse Brown-Conrady model with
	// coefficients k1, k2, p1, p2, k3.
	DistortionBrownConrady DistortionModel = "brown_conrady"
)

// Intrinsics describes the pinhole camera model of one depth stream.
type Intrinsics struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`

	Model  DistortionModel `json:"model,omitempty"`
	Coeffs [5]float64      `json:"coeffs"` // k1, k2, p1, p2, k3
}

// ErrInvalidIntrinsics is wrapped by Validate failures.
var ErrInvalidIntrinsics = errors.New("invalid intrinsics")

// Validate rejects calibrations that cannot back-project a pixel.
func (in Intrinsics) Validate() error {
	switch {
	case in.Width <= 0 || in.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidIntrinsics, in.Width, in.Height)
	case in.Fx <= 0 || in.Fy <= 0:
		return fmt.Errorf("%w: focal length fx=%g fy=%g", ErrInvalidIntrinsics, in.Fx, in.Fy)
	}
	switch in.Model {
	case "", DistortionNone, DistortionBrownConrady:
	default:
		return fmt.Errorf("%w: unknown distortion model %q", ErrInvalidIntrinsics, in.Model)
	}
	return nil
}

// Rectified returns centred intrinsics with no distortion for a width×height
// stream with the given focal length in pixels.
func Rectified(width, height int, focal float64) Intrinsics {
	return Intrinsics{
		Width:  width,
		Height: height,
		Fx:     focal,
		Fy:     focal,
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
		Model:  DistortionNone,
	}
}

// normalized returns the undistorted normalised image coordinates of a pixel.
func (in Intrinsics) normalized(px, py float64) (float64, float64) {
	x := (px - in.Ppx) / in.Fx
	y := (py - in.Ppy) / in.Fy
	if in.Model != DistortionBrownConrady {
		return x, y
	}
	k1, k2, p1, p2, k3 := in.Coeffs[0], in.Coeffs[1], in.Coeffs[2], in.Coeffs[3], in.Coeffs[4]
	r2 := x*x + y*y
	f := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
	ux := x*f + 2*p1*x*y + p2*(r2+2*x*x)
	uy := y*f + 2*p2*x*y + p1*(r2+2*y*y)
	return ux, uy
}

// Project back-projects pixel (px, py) with the given depth into camera
// space and returns it with the vertical axis inverted (y up).
func Project(px, py float64, depth float64, in Intrinsics) Point3D {
	x, y := in.normalized(px, py)
	return Point3D{X: depth * x, Y: -(depth * y), Z: depth}
}

// ProjectPixel is Project for integer pixel coordinates and a raw depth
// sample.
func ProjectPixel(px, py int, depth uint16, in Intrinsics) Point3D {
	return Project(float64(px), float64(py), float64(depth), in)
}

// CameraY returns the camera-space vertical coordinate of a projected point
// in the sensor's own convention (image-down positive).
func CameraY(p Point3D) float64 {
	return -p.Y
}

// ToPixel maps a y-up camera-space point back onto the image plane with the
// pinhole model, ignoring distortion. ok is false for points at or behind
// the camera.
func ToPixel(p Point3D, in Intrinsics) (px, py float64, ok bool) {
	if p.Z <= 0 {
		return 0, 0, false
	}
	px = p.X/p.Z*in.Fx + in.Ppx
	py = -p.Y/p.Z*in.Fy + in.Ppy
	return px, py, true
}
