// Package motion finds where the foreground changed between two cycles.
//
// The detector differences the current and previous masks, labels the
// 4-connected regions of the difference in raster order and traces the outer
// boundary of each region along pixel edges. Vertices lie on the pixel-corner
// lattice, so a k×k block yields 4k vertices and area k². Holes are not
// reported; each region contributes one flat outer contour.
//
// Key types: Detector, Contour.
package motion
