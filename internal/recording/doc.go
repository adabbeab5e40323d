// Package recording stores depth frames in SQLite so a session can be
// replayed without the sensor attached.
//
// A Store holds recording sessions (calibration, frame size, notes) and
// their gzip-compressed frames. Recorder appends the frames a running
// pipeline grabs; Player replays a stored session as a sensor.Device, so a
// replay goes through the same setup and grab path as live hardware.
package recording
