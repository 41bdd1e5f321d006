package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"

	"beatgrid/debug"
	"beatgrid/editor"
	"beatgrid/grid"
	"beatgrid/theme"
)

const (
	eventsZoneID = "events-grid"

	// background subdivisions per beat
	primaryDivisions = 4

	headerHeight = 2
)

type cellKind int

const (
	cellEmpty cellKind = iota
	cellBeatLine
	cellSubLine
	cellCursor
	cellGhost
	cellEvent
	cellSelected
)

type cell struct {
	r     rune
	kind  cellKind
	color lipgloss.Color
	head  bool // playhead column
}

// EventsGrid shows one row per lighting track across the visible window
type EventsGrid struct {
	state    editor.StateReader
	dispatch editor.Dispatcher
	theme    *theme.Theme
	zone     *zone.Manager
	bounds   Bounds

	prefixWidth int
	width       int

	mapper   grid.Mapper
	tracker  *Tracker
	release  func()
	hoverRow int
	lastX    int
}

func NewEventsGrid(state editor.StateReader, dispatch editor.Dispatcher, th *theme.Theme, z *zone.Manager, prefixWidth int) *EventsGrid {
	return &EventsGrid{
		state:       state,
		dispatch:    dispatch,
		theme:       th,
		zone:        z,
		bounds:      zoneBounds{z: z, id: eventsZoneID},
		prefixWidth: prefixWidth,
		release:     func() {},
		hoverRow:    -1,
	}
}

// Extent is the width of the track area, excluding the prefix column
func (g *EventsGrid) Extent() int {
	return max(0, g.width-g.prefixWidth-1)
}

// SetSize re-attaches pointer tracking for a new total width
func (g *EventsGrid) SetSize(width int) {
	g.width = width
	g.reattach()
}

// SetPrefixWidth changes the label column width
func (g *EventsGrid) SetPrefixWidth(w int) {
	if w < 0 || w == g.prefixWidth {
		return
	}
	g.prefixWidth = w
	g.reattach()
}

func (g *EventsGrid) reattach() {
	g.release()
	g.mapper.Extent = float64(g.Extent())
	g.tracker, g.release = Attach(g.bounds, g.Extent(), g.pointerMove, g.pointerLeave)
	if g.tracker == nil {
		debug.Debug("grid", "pointer tracking off, extent %d", g.Extent())
	}
}

// Close releases pointer tracking
func (g *EventsGrid) Close() {
	g.release()
}

func (g *EventsGrid) sync() {
	g.mapper.Window = g.state.Window()
	g.mapper.SnapTo = g.state.SnapTo()
	g.mapper.Extent = float64(g.Extent())
}

func (g *EventsGrid) pointerMove(x, y int) {
	if g.state.IsLoading() {
		g.pointerLeave()
		return
	}
	g.sync()
	g.lastX = x
	if !g.mapper.Move(float64(x)) {
		g.hoverRow = -1
		return
	}
	g.hoverRow = y
}

func (g *EventsGrid) pointerLeave() {
	g.mapper.Leave()
	g.hoverRow = -1
}

// refresh re-maps the last pointer position after the window changed
func (g *EventsGrid) refresh() {
	if g.mapper.Cursor().Visible() {
		g.pointerMove(g.lastX, g.hoverRow)
	}
}

// CursorBeat is the snapped beat under the pointer
func (g *EventsGrid) CursorBeat() (float64, bool) {
	return g.mapper.Beat()
}

// HoverTrack is the track under the pointer
func (g *EventsGrid) HoverTrack() (editor.Track, bool) {
	if g.hoverRow < 0 || g.hoverRow >= len(editor.Tracks) {
		return editor.Track{}, false
	}
	return editor.Tracks[g.hoverRow], true
}

// HandleMouse tracks the pointer and applies clicks and wheel input. It
// reports whether the message was consumed by the grid.
func (g *EventsGrid) HandleMouse(msg tea.MouseMsg) bool {
	inside := g.tracker.Handle(msg)
	if !inside || g.state.IsLoading() {
		return false
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp && msg.Ctrl:
		g.zoom(+1)
	case msg.Button == tea.MouseButtonWheelDown && msg.Ctrl:
		g.zoom(-1)
	case msg.Button == tea.MouseButtonWheelUp:
		g.dispatch.ScrollBeats(-1)
		g.refresh()
	case msg.Button == tea.MouseButtonWheelDown:
		g.dispatch.ScrollBeats(1)
		g.refresh()
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		g.click(false)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight:
		g.click(true)
	}
	return true
}

func (g *EventsGrid) zoom(delta int) {
	if err := g.dispatch.SetZoomLevel(g.state.ZoomLevel() + delta); err != nil {
		debug.Debug("grid", "zoom: %v", err)
		return
	}
	g.refresh()
}

// click places, selects or deletes the event under the cursor
func (g *EventsGrid) click(remove bool) {
	track, ok := g.HoverTrack()
	if !ok {
		return
	}
	beat, ok := g.CursorBeat()
	if !ok {
		return
	}

	existing, found := g.state.EventAt(track.ID, beat)
	switch {
	case remove && found:
		g.dispatch.DeleteEvent(existing.ID)
	case remove:
	case found:
		g.dispatch.ToggleEventSelected(existing.ID)
	default:
		if _, err := g.dispatch.PlaceEvent(track.ID, beat); err != nil {
			debug.WithError("grid", err, "place event")
		}
	}
}

func (g *EventsGrid) eventRune(e editor.Event) rune {
	s := g.theme.Symbols
	switch e.Type {
	case editor.EventOff:
		return s.Off
	case editor.EventFlash:
		return s.Flash
	case editor.EventFade:
		return s.Fade
	case editor.EventRotate:
		return s.Rotate
	case editor.EventZoom:
		return s.Zoom
	}
	return s.On
}

// ghostEvent is what a click at the cursor would place on track
func (g *EventsGrid) ghostEvent(track editor.Track) editor.Event {
	e := editor.Event{TrackID: track.ID, Type: g.state.Tool(), Color: g.state.Color()}
	switch track.ID {
	case "largeRing":
		e.Type = editor.EventRotate
	case "smallRing":
		e.Type = editor.EventZoom
	}
	return e
}

func (g *EventsGrid) eventColor(e editor.Event) lipgloss.Color {
	switch e.Type {
	case editor.EventOff:
		return g.theme.Muted()
	case editor.EventRotate, editor.EventZoom:
		return g.theme.Accent()
	}
	return g.theme.Light(string(e.Color))
}

// background draws beat and subdivision lines for one track row
func (g *EventsGrid) background(extent int) []cell {
	row := make([]cell, extent)
	for col := range row {
		b0 := g.mapper.BeatAtColumn(col)
		b1 := g.mapper.BeatAtColumn(col + 1)
		switch {
		case crosses(b0, b1, 1):
			row[col] = cell{r: g.theme.Symbols.BeatLine, kind: cellBeatLine}
		case crosses(b0, b1, 1.0/primaryDivisions):
			row[col] = cell{r: g.theme.Symbols.SubLine, kind: cellSubLine}
		default:
			row[col] = cell{r: ' ', kind: cellEmpty}
		}
	}
	return row
}

// crosses reports whether a multiple of step lies in [from, to)
func crosses(from, to, step float64) bool {
	first := math.Ceil(from/step-1e-9) * step
	return first < to-1e-9
}

func (g *EventsGrid) trackRow(i int, track editor.Track, extent int, cursorCol, headCol int) []cell {
	row := g.background(extent)

	if cursorCol >= 0 {
		row[cursorCol] = cell{r: g.theme.Symbols.MouseCursor, kind: cellCursor}
		if i == g.hoverRow {
			ghost := g.ghostEvent(track)
			row[cursorCol] = cell{r: g.theme.Symbols.Ghost, kind: cellGhost, color: g.eventColor(ghost)}
		}
	}

	w := g.state.Window()
	for _, e := range g.state.EventsInRange(track.ID, w.Start, w.End) {
		col := g.mapper.ColumnOfBeat(e.Beat)
		if col < 0 {
			continue
		}
		kind := cellEvent
		if e.Selected {
			kind = cellSelected
		}
		row[col] = cell{r: g.eventRune(e), kind: kind, color: g.eventColor(e)}
	}

	if headCol >= 0 {
		row[headCol].head = true
		if row[headCol].kind == cellEmpty || row[headCol].kind == cellSubLine || row[headCol].kind == cellBeatLine {
			row[headCol].r = g.theme.Symbols.PlayheadCol
		}
	}
	return row
}

func (g *EventsGrid) style(c cell) lipgloss.Style {
	th := g.theme
	s := lipgloss.NewStyle()
	switch c.kind {
	case cellEmpty, cellSubLine:
		s = s.Foreground(th.Surface())
	case cellBeatLine:
		s = s.Foreground(th.Muted())
	case cellCursor:
		s = s.Foreground(th.FG())
	case cellGhost:
		s = s.Foreground(c.color).Faint(true)
	case cellEvent:
		s = s.Foreground(c.color)
	case cellSelected:
		s = s.Foreground(th.BG()).Background(c.color)
	}
	if c.head {
		s = s.Foreground(th.Accent())
		if c.kind == cellSelected {
			s = s.Background(th.Accent())
		}
	}
	return s
}

// renderCells groups runs of identical cells into one styled span
func (g *EventsGrid) renderCells(row []cell) string {
	var out strings.Builder
	for i := 0; i < len(row); {
		j := i
		var run strings.Builder
		for j < len(row) && row[j].kind == row[i].kind && row[j].color == row[i].color && row[j].head == row[i].head {
			run.WriteRune(row[j].r)
			j++
		}
		out.WriteString(g.style(row[i]).Render(run.String()))
		i = j
	}
	return out.String()
}

// header renders the beat numbers and the nub/playhead line
func (g *EventsGrid) header(extent, headCol int) (string, string) {
	nums := []rune(strings.Repeat(" ", extent))
	nubs := []rune(strings.Repeat(" ", extent))

	first := g.mapper.Window.FirstColumn()
	for i := 1; i < g.mapper.Columns(); i++ {
		col := g.mapper.ColumnOfBeat(float64(first + i))
		if col < 0 {
			continue
		}
		nubs[col] = g.theme.Symbols.Nub
		label := []rune(fmt.Sprint(first + i))
		start := col - len(label)/2
		if start < 0 || start+len(label) > extent {
			continue
		}
		// keep a gap between neighbouring labels
		if start > 0 && nums[start-1] != ' ' {
			continue
		}
		copy(nums[start:], label)
	}
	if headCol >= 0 {
		nubs[headCol] = g.theme.Symbols.Playhead
	}

	muted := lipgloss.NewStyle().Foreground(g.theme.Muted())
	fg := lipgloss.NewStyle().Foreground(g.theme.FG())
	line := string(nubs)
	if headCol >= 0 {
		line = muted.Render(string(nubs[:headCol])) +
			lipgloss.NewStyle().Foreground(g.theme.Accent()).Render(string(nubs[headCol])) +
			muted.Render(string(nubs[headCol+1:]))
	} else {
		line = muted.Render(line)
	}
	return fg.Render(string(nums)), line
}

func (g *EventsGrid) prefix() string {
	label := lipgloss.NewStyle().
		Width(g.prefixWidth).
		Align(lipgloss.Right).
		Foreground(g.theme.FG())
	var lines []string
	for i := 0; i < headerHeight; i++ {
		lines = append(lines, strings.Repeat(" ", g.prefixWidth))
	}
	for i, t := range editor.Tracks {
		style := label
		if i == g.hoverRow {
			style = style.Foreground(g.theme.Accent())
		}
		lines = append(lines, style.Render(runewidth.Truncate(t.Label, g.prefixWidth, "…")))
	}
	return strings.Join(lines, "\n")
}

func (g *EventsGrid) View() string {
	extent := g.Extent()
	if extent <= 0 {
		return ""
	}
	g.sync()

	cursorCol := -1
	if g.hoverRow >= 0 {
		if col, ok := g.mapper.Cursor().Column(extent); ok {
			cursorCol = col
		}
	}
	headCol := g.mapper.ColumnOfBeat(g.state.SongBeat())

	nums, nubs := g.header(extent, headCol)
	var rows []string
	for i, t := range editor.Tracks {
		rows = append(rows, g.renderCells(g.trackRow(i, t, extent, cursorCol, headCol)))
	}
	body := strings.Join(rows, "\n")
	if g.zone != nil {
		body = g.zone.Mark(eventsZoneID, body)
	}

	divider := lipgloss.NewStyle().Foreground(g.theme.Muted()).
		Render(strings.Repeat("│\n", headerHeight+len(editor.Tracks)-1) + "│")
	right := lipgloss.JoinVertical(lipgloss.Left, nums, nubs, body)
	out := lipgloss.JoinHorizontal(lipgloss.Top, g.prefix(), divider, right)

	if g.state.IsLoading() {
		out = lipgloss.NewStyle().Faint(true).Render(out)
	}
	return out
}
