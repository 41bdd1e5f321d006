package grid

import (
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestNumBeatColumns(t *testing.T) {
	tests := []struct {
		r    Range
		want int
	}{
		{Range{0, 10}, 10},
		{Range{4, 8}, 4},
		{Range{0.5, 4.5}, 5},
		{Range{2.25, 3}, 1},
		{Range{3, 3}, 0},
	}
	for _, tt := range tests {
		if got := NumBeatColumns(tt.r); got != tt.want {
			t.Errorf("NumBeatColumns(%v) = %d, want %d", tt.r, got, tt.want)
		}
	}
}

func TestPixelToBeatBoundaries(t *testing.T) {
	r := Range{Start: 4, End: 12}
	if got := PixelToBeat(0, 640, r); got != 0 {
		t.Errorf("left edge = %v, want 0", got)
	}
	if got := PixelToBeat(640, 640, r); got != 8 {
		t.Errorf("right edge = %v, want 8", got)
	}
}

func TestPixelToBeatMonotonic(t *testing.T) {
	r := Range{Start: 1.5, End: 9.25}
	extent := 333.0
	prev := math.Inf(-1)
	for x := 0.0; x <= extent; x += 0.5 {
		b := PixelToBeat(x, extent, r)
		if b < prev {
			t.Fatalf("PixelToBeat decreased at x=%v: %v < %v", x, b, prev)
		}
		prev = b
	}
}

func TestRoundTrip(t *testing.T) {
	ranges := []Range{{0, 10}, {4, 8}, {0.5, 3.75}, {16, 48}}
	extents := []float64{1, 37, 500, 1000}
	for _, r := range ranges {
		n := float64(NumBeatColumns(r))
		for _, e := range extents {
			for x := 0.0; x <= e; x += e / 17 {
				got := BeatToPixel(PixelToBeat(x, e, r), e, n)
				if math.Abs(got-x) > 1e-6 {
					t.Errorf("round trip r=%v e=%v x=%v: got %v", r, e, x, got)
				}
			}
		}
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		b, q, want float64
	}{
		{2.37, 0.5, 2.5},
		{3.92, 1, 4},
		{2.25, 0.5, 2.5}, // half rounds up
		{2.24, 0.5, 2},
		{0, 0.25, 0},
		{-0.25, 0.5, 0}, // half rounds up, not away from zero
		{-0.3, 0.5, -0.5},
		{7.1, 0.125, 7.125},
	}
	for _, tt := range tests {
		if got := Snap(tt.b, tt.q); !approx(got, tt.want) {
			t.Errorf("Snap(%v, %v) = %v, want %v", tt.b, tt.q, got, tt.want)
		}
	}
}

func TestSnapIdempotent(t *testing.T) {
	quanta := []float64{1, 0.5, 0.25, 1.0 / 3, 0.1, 1.0 / 16}
	for _, q := range quanta {
		for b := -4.0; b < 12; b += 0.037 {
			once := Snap(b, q)
			if twice := Snap(once, q); twice != once {
				t.Fatalf("Snap not idempotent for b=%v q=%v: %v then %v", b, q, once, twice)
			}
		}
	}
}

func TestMapperScenarioHalfBeat(t *testing.T) {
	m := &Mapper{Window: Range{0, 10}, Extent: 1000, SnapTo: 0.5}

	if raw := PixelToBeat(237, 1000, m.Window); !approx(raw, 2.37) {
		t.Fatalf("raw beat = %v, want 2.37", raw)
	}
	if !m.Move(237) {
		t.Fatal("Move returned false")
	}
	px, ok := m.Cursor().Offset()
	if !ok {
		t.Fatal("expected a cursor")
	}
	if !approx(px, 250) {
		t.Errorf("cursor pixel = %v, want 250", px)
	}
	beat, _ := m.Beat()
	if !approx(beat, 2.5) {
		t.Errorf("logical beat = %v, want 2.5", beat)
	}
}

func TestMapperScenarioLogicalBeat(t *testing.T) {
	m := &Mapper{Window: Range{4, 8}, Extent: 500, SnapTo: 1}

	if raw := PixelToBeat(490, 500, m.Window); !approx(raw, 3.92) {
		t.Fatalf("raw beat = %v, want 3.92", raw)
	}
	m.Move(490)
	beat, ok := m.Beat()
	if !ok {
		t.Fatal("expected a beat")
	}
	if beat != 8 {
		t.Errorf("logical beat = %v, want 8", beat)
	}
	if px, _ := m.Cursor().Offset(); px != 500 {
		t.Errorf("cursor pixel = %v, want 500", px)
	}
}

func TestMapperLeaveClearsCursor(t *testing.T) {
	m := &Mapper{Window: Range{0, 4}, Extent: 80, SnapTo: 0.25}
	m.Move(33)
	if !m.Cursor().Visible() {
		t.Fatal("expected visible cursor after move")
	}
	m.Leave()
	if m.Cursor().Visible() {
		t.Error("cursor still visible after leave")
	}
	if _, ok := m.Beat(); ok {
		t.Error("beat still reported after leave")
	}
}

func TestMapperZeroExtent(t *testing.T) {
	m := &Mapper{Window: Range{0, 4}, Extent: 0, SnapTo: 1}
	if m.Move(10) {
		t.Fatal("Move succeeded with zero extent")
	}
	if m.Cursor().Visible() {
		t.Error("cursor visible with zero extent")
	}

	m = &Mapper{Window: Range{2, 2}, Extent: 100, SnapTo: 1}
	if m.Move(10) {
		t.Fatal("Move succeeded with empty window")
	}
}

func TestCursorColumnClamp(t *testing.T) {
	m := &Mapper{Window: Range{4, 8}, Extent: 40, SnapTo: 1}
	m.Move(39.9)
	col, ok := m.Cursor().Column(40)
	if !ok {
		t.Fatal("expected a column")
	}
	if col != 39 {
		t.Errorf("column = %d, want 39 (clamped)", col)
	}

	var c Cursor
	if _, ok := c.Column(40); ok {
		t.Error("zero cursor reported a column")
	}
}

func TestColumnOfBeat(t *testing.T) {
	m := &Mapper{Window: Range{4, 8}, Extent: 40, SnapTo: 1}
	tests := []struct {
		beat float64
		want int
	}{
		{4, 0},
		{5, 10},
		{7.5, 35},
		{3.9, -1},
		{8, -1},
	}
	for _, tt := range tests {
		if got := m.ColumnOfBeat(tt.beat); got != tt.want {
			t.Errorf("ColumnOfBeat(%v) = %d, want %d", tt.beat, got, tt.want)
		}
	}
	if got := m.BeatAtColumn(10); got != 5 {
		t.Errorf("BeatAtColumn(10) = %v, want 5", got)
	}
}

func TestMapperFractionalStartOffset(t *testing.T) {
	m := Mapper{Window: Range{Start: 0.5, End: 4.5}, Extent: 50, SnapTo: 1}
	if !m.Move(20) {
		t.Fatal("move rejected")
	}
	beat, _ := m.Beat()
	if !approx(beat, 2.5) {
		t.Fatalf("beat = %v, want Start + 2", beat)
	}

	col, ok := m.Cursor().Column(50)
	if !ok || col != 20 {
		t.Fatalf("cursor column = %d %v", col, ok)
	}
	frac := m.Window.Start - float64(m.Window.FirstColumn())
	if got := m.BeatAtColumn(col) + frac; !approx(got, beat) {
		t.Errorf("column beat %v + %v != logical beat %v", m.BeatAtColumn(col), frac, beat)
	}

	// whole-beat windows have no offset
	m.Window = Range{Start: 4, End: 8}
	m.Extent = 40
	m.Move(20)
	beat, _ = m.Beat()
	if got := m.BeatAtColumn(20); !approx(got, beat) {
		t.Errorf("whole-beat window: column beat %v, logical %v", got, beat)
	}
}
