// Package monitor turns pipeline statistics into debugging artefacts: PNG
// time series of per-cycle counters and HTML charts of the last cycle's
// point sets and particles.
package monitor
