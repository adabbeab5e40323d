// Package depth owns the depth frame and the binary foreground mask.
//
// Responsibilities: the fixed-size range grid delivered by a depth source,
// the 8-bit mask derived from it, and the normalisation step that maps
// in-range samples to a near-is-bright value before a binary cut.
// Key types: Frame, Mask.
//
// Dependency rule: depth is a leaf. It knows nothing about contours,
// projection or particles.
package depth
