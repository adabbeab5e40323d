// Package terminal is a tcell preview renderer for the particle pipeline.
// Each screen cell covers a block of depth pixels; colours are blended
// front to back with the render policy and drawn as full blocks.
package terminal

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/banshee-data/depthdust/internal/pipeline"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/render"
)

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("terminal: renderer closed")

const (
	cloudAlpha  = 0.5
	borderAlpha = 0.6
)

// Renderer draws pipeline views to a tcell screen and turns key presses
// into runtime commands.
type Renderer struct {
	screen   tcell.Screen
	commands chan pipeline.Command
	done     chan struct{}

	// ShowStatus reserves the bottom row for a status line.
	ShowStatus bool
	Background colorful.Color

	mu     sync.Mutex
	closed bool
	cells  []colorful.Color
	drawn  []bool
	frames uint64

	closeOnce sync.Once
}

// New initialises screen and starts its event loop.
func New(screen tcell.Screen) (*Renderer, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	screen.HideCursor()
	screen.Clear()

	r := &Renderer{
		screen:     screen,
		commands:   make(chan pipeline.Command, 8),
		done:       make(chan struct{}),
		ShowStatus: true,
	}
	go r.pollEvents()
	return r, nil
}

// Commands delivers operator key presses. It is closed once the screen is
// finalised.
func (r *Renderer) Commands() <-chan pipeline.Command { return r.commands }

func (r *Renderer) pollEvents() {
	defer close(r.commands)
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			return
		}
		if _, ok := ev.(*tcell.EventResize); ok {
			r.screen.Sync()
			continue
		}
		cmd, ok := commandFor(ev)
		if !ok {
			continue
		}
		select {
		case r.commands <- cmd:
		case <-r.done:
			return
		}
	}
}

// commandFor maps q, Esc and Ctrl-C to quit, c to the next colour mode and
// r to a particle reset.
func commandFor(ev tcell.Event) (pipeline.Command, bool) {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return 0, false
	}
	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return pipeline.CommandQuit, true
	case tcell.KeyRune:
		if key.Modifiers()&tcell.ModCtrl != 0 {
			switch key.Rune() {
			case 'c', 'C', 'q', 'Q':
				return pipeline.CommandQuit, true
			}
			return 0, false
		}
		switch key.Rune() {
		case 'q', 'Q':
			return pipeline.CommandQuit, true
		case 'c', 'C':
			return pipeline.CommandCycleColorMode, true
		case 'r', 'R':
			return pipeline.CommandResetParticles, true
		}
	}
	return 0, false
}

// Close finalises the screen. It is safe to call more than once.
func (r *Renderer) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
		r.screen.Fini()
	})
}

// Frames returns the number of views drawn.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// grid maps image coordinates onto screen cells.
type grid struct {
	w, h   int
	sx, sy float64
}

func newGrid(w, h int, calib projection.Intrinsics) grid {
	g := grid{w: w, h: h}
	if calib.Width > 0 && calib.Height > 0 {
		g.sx = float64(w) / float64(calib.Width)
		g.sy = float64(h) / float64(calib.Height)
	}
	return g
}

func (g grid) cell(px, py float64) (int, int, bool) {
	x := int(math.Floor(px * g.sx))
	y := int(math.Floor(py * g.sy))
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return 0, 0, false
	}
	return x, y, true
}

// Render draws view. Layers are composited in the order cloud, border,
// bolts, particles.
func (r *Renderer) Render(view pipeline.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	w, h := r.screen.Size()
	drawH := h
	if r.ShowStatus && h > 1 {
		drawH = h - 1
	}
	if w <= 0 || drawH <= 0 {
		return nil
	}
	r.resize(w * drawH)
	g := newGrid(w, drawH, view.Calibration)
	policy := view.Policy

	paint := func(p projection.Point3D, c colorful.Color, alpha float64, radius int) {
		px, py, ok := projection.ToPixel(p, view.Calibration)
		if !ok {
			return
		}
		cx, cy, ok := g.cell(px, py)
		if !ok {
			return
		}
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				x, y := cx+dx, cy+dy
				if x < 0 || y < 0 || x >= w || y >= drawH {
					continue
				}
				i := y*w + x
				r.cells[i] = render.Over(r.cells[i], c, alpha)
				r.drawn[i] = true
			}
		}
	}

	if policy.ShowCloud {
		c := policy.CloudColor()
		for _, p := range view.Points.Cloud {
			paint(p, c, cloudAlpha, 0)
		}
	}
	if policy.ShowBorder {
		c := policy.BorderColor()
		for _, p := range view.Points.Border {
			paint(p, c, borderAlpha, 0)
		}
	}
	if policy.ShowBolts {
		style := policy.BoltStyle(view.Stats.Loudness)
		radius := int(style.Width / 2)
		for _, p := range view.Points.Contour {
			paint(p, style.Color, style.Alpha, radius)
		}
	}
	if policy.ShowParticles {
		for _, p := range view.Particles {
			if !p.Active {
				continue
			}
			paint(p.Position, p.Color.Color, p.Color.A, 0)
		}
	}

	r.screen.Clear()
	for i, c := range r.cells {
		if !r.drawn[i] {
			continue
		}
		cr, cg, cb := c.Clamped().RGB255()
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(cr), int32(cg), int32(cb)))
		r.screen.SetContent(i%w, i/w, '█', nil, style)
	}
	if drawH < h {
		r.drawStatus(h-1, w, view)
	}
	r.screen.Show()
	r.frames++
	return nil
}

func (r *Renderer) resize(n int) {
	if len(r.cells) != n {
		r.cells = make([]colorful.Color, n)
		r.drawn = make([]bool, n)
	}
	for i := range r.cells {
		r.cells[i] = r.Background
		r.drawn[i] = false
	}
}

// StatusLine formats the status row for view.
func StatusLine(view pipeline.View) string {
	s := view.Stats
	line := fmt.Sprintf("cycle %d  particles %d  contours %d  spawned %d  mode %s",
		s.Cycle, s.Particles, s.Contours, s.Spawned, view.Policy.Mode)
	if s.HasLoudness {
		line += fmt.Sprintf("  level %.2f", s.Loudness)
		if s.Gated {
			line += " (gated)"
		}
	}
	return line + "  [q]uit [c]olour [r]eset"
}

func (r *Renderer) drawStatus(y, w int, view pipeline.View) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	x := 0
	for _, ch := range StatusLine(view) {
		if x >= w {
			break
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
	for ; x < w; x++ {
		r.screen.SetContent(x, y, ' ', nil, style)
	}
}
