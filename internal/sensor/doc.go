// Package sensor opens depth capture sessions and adapts them to the frame
// source the pipeline consumes.
//
// Open walks the device setup steps (probe, calibration check, stream
// enables, resolution, intrinsics, capture start) and records every failure
// in a SetupReport instead of stopping at the first one, so the caller can
// log the whole picture and keep running in a degraded state. Synthetic is a
// hardware-free device that renders a moving blob; Disabled fails every
// step. AsyncSource moves Grab onto a producer goroutine and hands frames
// over through a one-slot Mailbox.
package sensor
