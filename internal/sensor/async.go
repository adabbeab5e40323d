package sensor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/timeutil"
)

// Mailbox is a one-slot, most-recent-wins frame hand-off. Put copies a frame
// in, replacing any frame that was never taken; Take copies it out.
type Mailbox struct {
	mu        sync.Mutex
	frame     *depth.Frame
	calib     projection.Intrinsics
	fresh     bool
	dropped   uint64
	delivered uint64
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox { return &Mailbox{} }

// Put stores a copy of f. A frame that was still waiting is counted as
// dropped.
func (m *Mailbox) Put(f *depth.Frame, calib projection.Intrinsics) {
	if f == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil || !m.frame.SameSize(f) {
		m.frame = f.Clone()
	} else {
		_ = m.frame.CopyFrom(f)
	}
	if m.fresh {
		m.dropped++
	}
	m.calib = calib
	m.fresh = true
}

// Take copies the waiting frame into dst, resizing dst if needed, and
// returns the new buffer. ok is false when nothing new arrived since the
// last Take; dst is then returned unchanged.
func (m *Mailbox) Take(dst *depth.Frame) (out *depth.Frame, calib projection.Intrinsics, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fresh {
		return dst, m.calib, false
	}
	if dst == nil || !dst.SameSize(m.frame) {
		dst = m.frame.Clone()
	} else {
		_ = dst.CopyFrom(m.frame)
	}
	m.fresh = false
	m.delivered++
	return dst, m.calib, true
}

// Dropped returns the number of frames overwritten before being taken.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Delivered returns the number of frames taken.
func (m *Mailbox) Delivered() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delivered
}

// Pump grabs from src into mb until ctx is done or src stops streaming.
// When period is positive grabs are paced by a ticker from clock; otherwise
// Grab itself is expected to block until a frame is ready.
func Pump(ctx context.Context, src Source, mb *Mailbox, clock timeutil.Clock, period time.Duration) error {
	var tick <-chan time.Time
	if period > 0 {
		if clock == nil {
			clock = timeutil.RealClock{}
		}
		t := clock.NewTicker(period)
		defer t.Stop()
		tick = t.C()
	}
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		if !src.IsStreaming() {
			return ErrNotStreaming
		}
		if src.Grab() {
			mb.Put(src.DepthFrame(), src.Calibration())
		}
	}
}

// AsyncSource runs Pump on its own goroutine and serves the latest frame to
// the consumer. The wrapped source must not be used by anyone else until
// Stop returns.
type AsyncSource struct {
	mb        *Mailbox
	frame     *depth.Frame
	calib     projection.Intrinsics
	streaming atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// StartAsync begins pumping src. The initial calibration is read before the
// goroutine starts.
func StartAsync(ctx context.Context, src Source, clock timeutil.Clock, period time.Duration) *AsyncSource {
	ctx, cancel := context.WithCancel(ctx)
	a := &AsyncSource{
		mb:     NewMailbox(),
		calib:  src.Calibration(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	a.streaming.Store(src.IsStreaming())
	go func() {
		defer close(a.done)
		defer a.streaming.Store(false)
		diagf("capture pump started")
		a.err = Pump(ctx, src, a.mb, clock, period)
		if a.err != nil {
			opsf("capture pump stopped: %v", a.err)
		} else {
			diagf("capture pump stopped")
		}
	}()
	return a
}

// IsStreaming reports whether the pump is still running.
func (a *AsyncSource) IsStreaming() bool { return a.streaming.Load() }

// Grab takes the newest frame. It returns false when no new frame arrived
// since the last call.
func (a *AsyncSource) Grab() bool {
	f, calib, ok := a.mb.Take(a.frame)
	if !ok {
		return false
	}
	a.frame, a.calib = f, calib
	return true
}

func (a *AsyncSource) DepthFrame() *depth.Frame           { return a.frame }
func (a *AsyncSource) Calibration() projection.Intrinsics { return a.calib }

// Dropped returns the number of frames the consumer never saw.
func (a *AsyncSource) Dropped() uint64 { return a.mb.Dropped() }

// Stop cancels the pump and waits for it. It returns ErrNotStreaming if the
// wrapped source stopped before Stop was called.
func (a *AsyncSource) Stop() error {
	a.cancel()
	<-a.done
	return a.err
}
