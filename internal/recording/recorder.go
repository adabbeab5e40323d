package recording

import (
	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/timeutil"
)

// Recorder appends every frame it is given to a store session. The session
// is created on the first frame, and a new one is started whenever the
// calibration changes.
type Recorder struct {
	store *Store
	clock timeutil.Clock
	fps   int
	notes string

	// MaxFrames stops recording after that many frames; 0 is unlimited.
	MaxFrames int

	session *SessionInfo
	seq     int
	total   int
}

// NewRecorder returns a recorder writing to store. A nil clock uses the
// wall clock.
func NewRecorder(store *Store, clock timeutil.Clock, fps int, notes string) *Recorder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Recorder{store: store, clock: clock, fps: fps, notes: notes}
}

// WriteFrame stores frame under the current session.
func (r *Recorder) WriteFrame(frame *depth.Frame, calib projection.Intrinsics) error {
	if r.MaxFrames > 0 && r.total >= r.MaxFrames {
		return nil
	}
	now := r.clock.Now()
	if r.session == nil || r.session.Calibration != calib {
		info, err := r.store.CreateSession(calib, r.fps, r.notes, now)
		if err != nil {
			return err
		}
		if r.session != nil {
			opsf("calibration changed; session %s closed after %d frames, recording to %s",
				r.session.ID, r.seq, info.ID)
		} else {
			opsf("recording to session %s", info.ID)
		}
		r.session = &info
		r.seq = 0
	}
	if err := r.store.AppendFrame(r.session.ID, r.seq, now, frame); err != nil {
		return err
	}
	r.seq++
	r.total++
	if r.MaxFrames > 0 && r.total == r.MaxFrames {
		opsf("recording limit of %d frames reached", r.MaxFrames)
	}
	return nil
}

// SessionID returns the current session, or "" before the first frame.
func (r *Recorder) SessionID() string {
	if r.session == nil {
		return ""
	}
	return r.session.ID
}

// Frames returns the number of frames written across all sessions.
func (r *Recorder) Frames() int { return r.total }
