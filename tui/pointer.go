package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

// Bounds locates a tracked element on screen
type Bounds interface {
	InBounds(msg tea.MouseMsg) bool
	// Pos returns msg relative to the element's top-left cell
	Pos(msg tea.MouseMsg) (x, y int)
}

// zoneBounds resolves a bubblezone id on every call, since zones move
// whenever the view is re-scanned
type zoneBounds struct {
	z  *zone.Manager
	id string
}

func (b zoneBounds) InBounds(msg tea.MouseMsg) bool {
	if b.z == nil {
		return false
	}
	info := b.z.Get(b.id)
	return info != nil && info.InBounds(msg)
}

func (b zoneBounds) Pos(msg tea.MouseMsg) (int, int) {
	if b.z == nil {
		return -1, -1
	}
	info := b.z.Get(b.id)
	if info == nil {
		return -1, -1
	}
	return info.Pos(msg)
}

// Tracker reports pointer movement over one element while attached
type Tracker struct {
	bounds  Bounds
	extent  int
	onMove  func(x, y int)
	onLeave func()

	attached bool
	inside   bool
}

// Attach subscribes to pointer movement over bounds. It returns nil and a
// no-op release when extent is zero, since nothing could be mapped. The
// release func detaches, fires onLeave once, and is safe to call again.
func Attach(bounds Bounds, extent int, onMove func(x, y int), onLeave func()) (*Tracker, func()) {
	if extent <= 0 || bounds == nil {
		return nil, func() {}
	}
	t := &Tracker{
		bounds:   bounds,
		extent:   extent,
		onMove:   onMove,
		onLeave:  onLeave,
		attached: true,
	}
	return t, t.release
}

func (t *Tracker) release() {
	if !t.attached {
		return
	}
	t.attached = false
	t.inside = false
	if t.onLeave != nil {
		t.onLeave()
	}
}

// Extent is the tracked width in cells
func (t *Tracker) Extent() int {
	if t == nil {
		return 0
	}
	return t.extent
}

// Inside reports whether the pointer was last seen over the element
func (t *Tracker) Inside() bool {
	return t != nil && t.inside
}

// Handle feeds a mouse message to the tracker and reports whether it landed
// inside the element. Leaving the element fires onLeave once.
func (t *Tracker) Handle(msg tea.MouseMsg) bool {
	if t == nil || !t.attached {
		return false
	}
	if t.bounds.InBounds(msg) {
		x, y := t.bounds.Pos(msg)
		t.inside = true
		if t.onMove != nil {
			t.onMove(x, y)
		}
		return true
	}
	if t.inside {
		t.inside = false
		if t.onLeave != nil {
			t.onLeave()
		}
	}
	return false
}
