package recording

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/sensor"
)

var _ sensor.Device = (*Player)(nil)

// Player replays a recorded session as a depth device. Frames are served
// one per Grab in recorded order; pacing is left to the caller.
type Player struct {
	store     *Store
	sessionID string
	loop      bool

	info      SessionInfo
	loaded    bool
	capturing bool
	next      int
	end       int // one past the highest recorded seq
	frame     *depth.Frame
	loops     int
}

// NewPlayer returns a player for sessionID. An empty id replays the most
// recent session. With loop set the replay restarts after the last frame.
func NewPlayer(store *Store, sessionID string, loop bool) *Player {
	return &Player{store: store, sessionID: sessionID, loop: loop}
}

// Info returns the loaded session.
func (p *Player) Info() SessionInfo { return p.info }

// Loops returns how many times the replay has wrapped.
func (p *Player) Loops() int { return p.loops }

func (p *Player) ProbeConfiguration() error {
	var (
		info SessionInfo
		err  error
	)
	if p.sessionID == "" {
		info, err = p.store.LatestSession()
	} else {
		info, err = p.store.Session(p.sessionID)
	}
	if err != nil {
		return err
	}
	end, err := p.store.SeqEnd(info.ID)
	if err != nil {
		return err
	}
	p.info = info
	p.end = end
	p.loaded = true
	diagf("replaying session %s: %d frames %dx%d", info.ID, info.Frames, info.Width, info.Height)
	return nil
}

func (p *Player) CalibrationValid() bool {
	return p.loaded && p.info.Calibration.Validate() == nil
}

// EnableStream accepts every stream; only depth is recorded.
func (p *Player) EnableStream(kind sensor.StreamKind) error {
	if !p.loaded {
		return ErrNoSession
	}
	return nil
}

// SetResolution fails unless the request matches the recorded size.
func (p *Player) SetResolution(width, height, fps int) error {
	if !p.loaded {
		return ErrNoSession
	}
	if width != p.info.Width || height != p.info.Height {
		return fmt.Errorf("session %s was recorded at %dx%d", p.info.ID, p.info.Width, p.info.Height)
	}
	return nil
}

func (p *Player) Intrinsics() (projection.Intrinsics, error) {
	if !p.loaded {
		return projection.Intrinsics{}, ErrNoSession
	}
	return p.info.Calibration, nil
}

func (p *Player) StartCapture() error {
	if !p.loaded {
		return ErrNoSession
	}
	if p.info.Frames == 0 {
		return fmt.Errorf("session %s has no frames", p.info.ID)
	}
	p.frame = depth.NewFrame(p.info.Width, p.info.Height)
	p.next = 0
	p.capturing = true
	return nil
}

func (p *Player) StopCapture() error {
	p.capturing = false
	return nil
}

// Grab loads the next recorded frame. After the last frame it returns
// ErrEndOfRecording, or wraps to the first frame when looping. A frame that
// is missing or unreadable fails its own grab only; the next Grab moves on.
func (p *Player) Grab() error {
	if !p.capturing {
		return sensor.ErrNotStreaming
	}
	if p.next >= p.end {
		if !p.loop {
			return ErrEndOfRecording
		}
		p.next = 0
		p.loops++
		tracef("session %s: loop %d", p.info.ID, p.loops)
	}
	seq := p.next
	p.next++
	_, err := p.store.ReadFrame(p.info.ID, seq, p.frame)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: frame %d missing", p.info.ID, seq)
	}
	return err
}

func (p *Player) ReadDepth(dst *depth.Frame) error {
	if p.frame == nil {
		return sensor.ErrNotStreaming
	}
	return dst.CopyFrom(p.frame)
}
