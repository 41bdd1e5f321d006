package grid

import "math"

// Range is the visible window of musical time, in beats.
type Range struct {
	Start float64
	End   float64
}

// Span returns the unrounded number of beats in the window
func (r Range) Span() float64 {
	return r.End - r.Start
}

// FirstColumn is the whole beat drawn at the left edge of the grid
func (r Range) FirstColumn() int {
	return int(math.Floor(r.Start))
}

// NumBeatColumns returns how many whole-beat columns the header draws for r.
// The window is widened to whole beats on both sides before counting.
func NumBeatColumns(r Range) int {
	n := int(math.Ceil(r.End)) - int(math.Floor(r.Start))
	if n < 0 {
		return 0
	}
	return n
}

// PixelToBeat maps a horizontal offset inside the tracked area to a beat
// offset from the left edge of the window. The result is neither snapped nor
// shifted by r.Start. A zero extent yields NaN or Inf; callers must guard.
func PixelToBeat(pixelX, pixelExtent float64, r Range) float64 {
	return (pixelX / pixelExtent) * float64(NumBeatColumns(r))
}

// Snap rounds beatOffset to the nearest multiple of quantum, halves rounding
// up. quantum must be positive.
func Snap(beatOffset, quantum float64) float64 {
	return math.Floor(beatOffset/quantum+0.5) * quantum
}

// BeatToPixel is the inverse of PixelToBeat.
func BeatToPixel(beatOffset, pixelExtent, numBeatsVisible float64) float64 {
	return (beatOffset / numBeatsVisible) * pixelExtent
}

// Cursor is the snapped mouse cursor over the grid. The zero value is "no
// cursor".
type Cursor struct {
	offset *float64
}

// Offset returns the cursor offset from the grid's left edge
func (c Cursor) Offset() (float64, bool) {
	if c.offset == nil {
		return 0, false
	}
	return *c.offset, true
}

// Visible reports whether a cursor should be rendered
func (c Cursor) Visible() bool {
	return c.offset != nil
}

// Column returns the cell the cursor falls in, clamped to [0, width)
func (c Cursor) Column(width int) (int, bool) {
	if c.offset == nil || width <= 0 {
		return 0, false
	}
	col := int(math.Round(*c.offset))
	if col < 0 {
		col = 0
	}
	if col >= width {
		col = width - 1
	}
	return col, true
}

func (c *Cursor) set(px float64) {
	c.offset = &px
}

// Clear hides the cursor
func (c *Cursor) Clear() {
	c.offset = nil
}

// Mapper turns pointer movement over the grid into a snapped cursor and a
// logical beat position. It holds no reference to editor state; the window,
// extent and quantum are pushed in by the owning view before each move.
//
// Columns are drawn from the whole beat Window.FirstColumn(), while the
// logical beat is Window.Start plus the snapped offset. The two only agree
// for whole-beat starts; with a fractional start the logical beat sits
// Start-floor(Start) beats after the column under the cursor. The editor
// keeps its window on whole beats.
type Mapper struct {
	Window Range
	Extent float64
	SnapTo float64

	cursor Cursor
	beat   float64 // logical beat of the cursor, valid while cursor is set
}

// Columns returns the beat column count for the current window
func (m *Mapper) Columns() int {
	return NumBeatColumns(m.Window)
}

// Ready reports whether pointer positions can be mapped at all
func (m *Mapper) Ready() bool {
	return m.Extent > 0 && m.Columns() > 0 && m.SnapTo > 0
}

// Move handles a pointer position relative to the tracked element. It returns
// false and clears the cursor when the mapping is undefined.
func (m *Mapper) Move(x float64) bool {
	if !m.Ready() {
		m.cursor.Clear()
		return false
	}

	cols := float64(m.Columns())
	raw := PixelToBeat(x, m.Extent, m.Window)
	snapped := Snap(raw, m.SnapTo)
	px := BeatToPixel(snapped, m.Extent, cols)

	m.cursor.set(px)
	m.beat = m.Window.Start + snapped
	return true
}

// Leave resets the cursor when the pointer exits the tracked element.
func (m *Mapper) Leave() {
	m.cursor.Clear()
	m.beat = 0
}

// Cursor returns the current cursor state
func (m *Mapper) Cursor() Cursor {
	return m.cursor
}

// Beat returns the logical beat under the cursor
func (m *Mapper) Beat() (float64, bool) {
	if !m.cursor.Visible() {
		return 0, false
	}
	return m.beat, true
}

// BeatAtColumn maps a cell column in the grid area back to the beat at its
// left edge, unsnapped. Used for drawing events and background lines.
func (m *Mapper) BeatAtColumn(col int) float64 {
	if m.Extent <= 0 {
		return m.Window.Start
	}
	return float64(m.Window.FirstColumn()) + PixelToBeat(float64(col), m.Extent, m.Window)
}

// ColumnOfBeat maps an absolute beat to the cell column it is drawn in, or
// -1 when the beat is outside the window.
func (m *Mapper) ColumnOfBeat(beat float64) int {
	cols := m.Columns()
	if m.Extent <= 0 || cols == 0 {
		return -1
	}
	offset := beat - float64(m.Window.FirstColumn())
	if offset < 0 || offset >= float64(cols) {
		return -1
	}
	col := int(math.Floor(BeatToPixel(offset, m.Extent, float64(cols)) + 1e-9))
	if col >= int(m.Extent) {
		col = int(m.Extent) - 1
	}
	return col
}
