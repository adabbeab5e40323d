// Package pipeline runs the per-frame depth-to-particles cycle.
//
// A Pipeline owns every buffer that has to survive from one cycle to the
// next (the previous mask, the previous depth frame, the contour detector
// and the particle system). Cycle performs one full pass: normalise, build
// the render point sets, detect motion, spawn, step. Runtime drives Cycle
// from a fixed-rate ticker and forwards the result to the renderer and any
// statistics sinks.
//
// This package is the composition root for the core packages (depth,
// motion, projection, spawner, particles). Adapters such as sensor,
// recording, audio and render/terminal satisfy the interfaces declared
// here; none of the core packages import pipeline.
package pipeline
