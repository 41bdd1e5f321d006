package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"beatgrid/editor"
	"beatgrid/theme"
)

const testPrefix = 18

func testTheme() *theme.Theme {
	return theme.New(theme.MustBuiltin(theme.DefaultPalette))
}

func testStore(t *testing.T) *editor.Store {
	t.Helper()
	s := editor.NewStore(editor.DefaultSettings())
	s.SetClipboardWriter(nil)
	return s
}

// newTestGrid tracks 32 cells over the default 16 beat window, so every
// two cells are one beat
func newTestGrid(t *testing.T, s *editor.Store) (*EventsGrid, *fakeBounds) {
	t.Helper()
	b := &fakeBounds{}
	g := NewEventsGrid(s, s, testTheme(), nil, testPrefix)
	g.bounds = b
	g.SetSize(testPrefix + 1 + 32)
	t.Cleanup(g.Close)
	return g, b
}

func press(button tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{Action: tea.MouseActionPress, Button: button}
}

func TestGridCursorSnaps(t *testing.T) {
	s := testStore(t)
	g, b := newTestGrid(t, s)
	if g.Extent() != 32 {
		t.Fatalf("extent = %d", g.Extent())
	}

	b.inside, b.x, b.y = true, 5, 2
	g.HandleMouse(motion())
	beat, ok := g.CursorBeat()
	if !ok || beat != 2.5 {
		t.Errorf("cursor beat = %v %v, want 2.5", beat, ok)
	}
	if track, _ := g.HoverTrack(); track.ID != "laserBack" {
		t.Errorf("hover track = %q", track.ID)
	}

	b.inside = false
	g.HandleMouse(motion())
	if _, ok := g.CursorBeat(); ok {
		t.Error("cursor survived leaving the grid")
	}
	if _, ok := g.HoverTrack(); ok {
		t.Error("hover track survived leaving the grid")
	}
}

func TestGridClickPlacesSelectsDeletes(t *testing.T) {
	s := testStore(t)
	g, b := newTestGrid(t, s)
	b.inside, b.x, b.y = true, 4, 0

	g.HandleMouse(press(tea.MouseButtonLeft))
	e, ok := s.EventAt("laserLeft", 2)
	if !ok {
		t.Fatal("left click did not place an event")
	}

	g.HandleMouse(press(tea.MouseButtonLeft))
	if e, _ = s.EventAt("laserLeft", 2); !e.Selected {
		t.Error("click on an event did not select it")
	}

	g.HandleMouse(press(tea.MouseButtonRight))
	if _, ok := s.EventAt("laserLeft", 2); ok {
		t.Error("right click did not delete the event")
	}

	// right click on empty space is a no-op
	g.HandleMouse(press(tea.MouseButtonRight))
	if got := s.EventsInRange("laserLeft", 0, 16); len(got) != 0 {
		t.Errorf("events after empty right click: %+v", got)
	}
}

func TestGridIgnoresInputWhileLoading(t *testing.T) {
	s := testStore(t)
	g, b := newTestGrid(t, s)
	s.SetLoading(true)
	b.inside, b.x, b.y = true, 4, 0

	if g.HandleMouse(press(tea.MouseButtonLeft)) {
		t.Error("grid consumed a click while loading")
	}
	if _, ok := s.EventAt("laserLeft", 2); ok {
		t.Error("event placed while loading")
	}
	if _, ok := g.CursorBeat(); ok {
		t.Error("cursor shown while loading")
	}
}

func TestGridWheel(t *testing.T) {
	s := testStore(t)
	g, b := newTestGrid(t, s)
	b.inside, b.x, b.y = true, 0, 0

	g.HandleMouse(press(tea.MouseButtonWheelDown))
	if s.StartBeat() != 1 {
		t.Errorf("start = %v after wheel down", s.StartBeat())
	}
	g.HandleMouse(press(tea.MouseButtonWheelUp))
	if s.StartBeat() != 0 {
		t.Errorf("start = %v after wheel up", s.StartBeat())
	}

	zoom := s.ZoomLevel()
	msg := press(tea.MouseButtonWheelUp)
	msg.Ctrl = true
	g.HandleMouse(msg)
	if s.ZoomLevel() != zoom+1 {
		t.Errorf("ctrl+wheel zoom = %d, want %d", s.ZoomLevel(), zoom+1)
	}
}

func TestGridZeroExtent(t *testing.T) {
	s := testStore(t)
	g := NewEventsGrid(s, s, testTheme(), nil, testPrefix)
	g.bounds = &fakeBounds{inside: true}
	g.SetSize(testPrefix)

	if g.HandleMouse(press(tea.MouseButtonLeft)) {
		t.Error("zero-width grid consumed a click")
	}
	if g.View() != "" {
		t.Error("zero-width grid rendered")
	}
}

func TestGridViewRendersTracks(t *testing.T) {
	s := testStore(t)
	g, _ := newTestGrid(t, s)
	s.PlaceEvent("trackNeons", 4)

	view := g.View()
	if view == "" {
		t.Fatal("empty view")
	}
	for _, track := range editor.Tracks {
		if !strings.Contains(view, track.Label) {
			t.Errorf("view missing %q", track.Label)
		}
	}
}

func TestGridPrefixTruncatesLabels(t *testing.T) {
	s := testStore(t)
	g, _ := newTestGrid(t, s)
	g.SetPrefixWidth(6)

	prefix := g.prefix()
	if !strings.Contains(prefix, "Left …") {
		t.Errorf("prefix = %q, want truncated labels", prefix)
	}
}
