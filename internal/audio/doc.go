// Package audio derives a per-cycle loudness level from a beep stream.
//
// The level is the mean absolute sample amplitude over one cycle's worth of
// samples, scaled by a gain and clamped to [0, 1]. It feeds the spawn gate
// and the bolt style of the renderer.
package audio
