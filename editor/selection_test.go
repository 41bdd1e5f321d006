package editor

import (
	"strings"
	"testing"
)

func storeWith(t *testing.T, b *Beatmap) *Store {
	t.Helper()
	s := newTestStore(t)
	s.Load(b, "")
	return s
}

func TestSelectionCountsAndSoleObstacle(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{
		{Beat: 1, Selected: true},
		{Beat: 2},
	}
	b.Obstacles = []Obstacle{{Beat: 3, Duration: 1, Width: 1, Selected: true}}
	s := storeWith(t, b)

	notes, walls := s.SelectionCounts()
	if notes != 1 || walls != 1 {
		t.Fatalf("counts = %d notes, %d walls", notes, walls)
	}
	if _, ok := s.SelectedObstacle(); ok {
		t.Error("sole obstacle reported while a note is selected")
	}

	s.SelectNotesAt(1) // toggles the note off
	if _, ok := s.SelectedObstacle(); !ok {
		t.Error("sole obstacle not reported")
	}
}

func TestSwapHorizontal(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{
		{Beat: 1, LineIndex: 0, LineLayer: 0, Direction: DirLeft, Selected: true},
		{Beat: 1, LineIndex: 1, LineLayer: 2, Direction: DirUpRight, Selected: true},
		{Beat: 2, LineIndex: 0, Direction: DirLeft},
	}
	b.Obstacles = []Obstacle{{Beat: 1, LineIndex: 0, Width: 2, Duration: 1, Selected: true}}
	s := storeWith(t, b)

	s.SwapSelectedNotes(Horizontal)
	got := s.Beatmap()

	if n := got.Notes[0]; n.LineIndex != 3 || n.Direction != DirRight {
		t.Errorf("note 0 = %+v", n)
	}
	if n := got.Notes[1]; n.LineIndex != 2 || n.LineLayer != 2 || n.Direction != DirUpLeft {
		t.Errorf("note 1 = %+v", n)
	}
	if n := got.Notes[2]; n.LineIndex != 0 || n.Direction != DirLeft {
		t.Errorf("unselected note moved: %+v", n)
	}
	if o := got.Obstacles[0]; o.LineIndex != 2 {
		t.Errorf("wall lineIndex = %d, want 2", o.LineIndex)
	}
}

func TestSwapVertical(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{{Beat: 1, LineIndex: 1, LineLayer: 0, Direction: DirDownLeft, Selected: true}}
	b.Obstacles = []Obstacle{{Beat: 1, LineIndex: 0, Width: 1, Duration: 1, Selected: true}}
	s := storeWith(t, b)

	s.SwapSelectedNotes(Vertical)
	got := s.Beatmap()
	if n := got.Notes[0]; n.LineLayer != 2 || n.LineIndex != 1 || n.Direction != DirUpLeft {
		t.Errorf("note = %+v", n)
	}
	if got.Obstacles[0].LineIndex != 0 {
		t.Error("vertical swap moved a wall")
	}
}

func TestNudgeSelection(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{{Beat: 0.25, Selected: true}, {Beat: 4}}
	b.Events = []Event{{ID: 1, TrackID: "laserBack", Beat: 2, Type: EventOn, Selected: true}}
	s := storeWith(t, b)

	s.NudgeSelection(Forwards, NotesView)
	if got := s.Beatmap().Notes[0].Beat; got != 0.75 {
		t.Errorf("nudged note beat = %v, want 0.75", got)
	}
	s.NudgeSelection(Backwards, NotesView)
	s.NudgeSelection(Backwards, NotesView)
	if got := s.Beatmap().Notes[0].Beat; got != 0 {
		t.Errorf("nudge went below zero: %v", got)
	}

	s.NudgeSelection(Backwards, EventsView)
	if _, ok := s.EventAt("laserBack", 1.5); !ok {
		t.Error("event not nudged back")
	}
}

func TestCopyPasteNotes(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{
		{Beat: 2, LineIndex: 1, Color: ColorRed, Selected: true},
		{Beat: 3, LineIndex: 2, Color: ColorBlue, Selected: true},
	}
	s := storeWith(t, b)

	var exported string
	s.SetClipboardWriter(func(text string) error {
		exported = text
		return nil
	})

	if s.HasCopiedNotes() {
		t.Fatal("clipboard not empty at start")
	}
	s.CopySelection(NotesView)
	if !s.HasCopiedNotes() {
		t.Fatal("nothing copied")
	}
	if !strings.Contains(exported, `"notes"`) {
		t.Errorf("system clipboard export = %q", exported)
	}

	s.SeekTo(10)
	s.PasteSelection(NotesView)
	got := s.Beatmap()
	if len(got.Notes) != 4 {
		t.Fatalf("got %d notes after paste, want 4", len(got.Notes))
	}
	if got.Notes[2].Beat != 10 || got.Notes[3].Beat != 11 {
		t.Errorf("pasted beats = %v, %v", got.Notes[2].Beat, got.Notes[3].Beat)
	}
	if got.Notes[0].Selected || !got.Notes[2].Selected {
		t.Error("paste should move the selection to the pasted notes")
	}
}

func TestCutRemovesSelection(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{{Beat: 1, Selected: true}, {Beat: 2}}
	b.Obstacles = []Obstacle{{Beat: 1.5, Duration: 1, Width: 1, Selected: true}}
	s := storeWith(t, b)

	s.CutSelection(NotesView)
	got := s.Beatmap()
	if len(got.Notes) != 1 || got.Notes[0].Beat != 2 {
		t.Errorf("notes after cut = %+v", got.Notes)
	}
	if len(got.Obstacles) != 0 {
		t.Errorf("obstacles after cut = %+v", got.Obstacles)
	}
	if !s.HasCopiedNotes() {
		t.Error("cut did not fill the clipboard")
	}
}

func TestCutEmptySelectionKeepsClipboard(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{{Beat: 1, Selected: true}}
	s := storeWith(t, b)
	s.CopySelection(NotesView)
	s.DeselectAll(NotesView)

	s.CutSelection(NotesView)
	if !s.HasCopiedNotes() {
		t.Error("cut with nothing selected cleared the clipboard")
	}
}

func TestCopyPasteEvents(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.PlaceEvent("laserLeft", 4)
	c, _ := s.PlaceEvent("laserRight", 5)
	s.ToggleEventSelected(a.ID)
	s.ToggleEventSelected(c.ID)

	s.CopySelection(EventsView)
	if !s.HasCopiedEvents() || s.HasCopiedNotes() {
		t.Fatal("event copy landed in the wrong clipboard")
	}

	s.SeekTo(8)
	s.PasteSelection(EventsView)
	if _, ok := s.EventAt("laserLeft", 8); !ok {
		t.Error("pasted laserLeft event missing")
	}
	if e, ok := s.EventAt("laserRight", 9); !ok || !e.Selected {
		t.Error("pasted laserRight event missing or unselected")
	}
	if s.SelectedEventCount() != 2 {
		t.Errorf("selected = %d, want only the 2 pasted events", s.SelectedEventCount())
	}
}

func TestSelectAllInRange(t *testing.T) {
	b := NewBeatmap()
	b.Notes = []Note{{Beat: 1}, {Beat: 40}}
	b.Events = []Event{{ID: 1, TrackID: "laserBack", Beat: 3, Type: EventOn}}
	s := storeWith(t, b)

	s.SelectAllInRange(NotesView)
	notes, _ := s.SelectionCounts()
	if notes != 1 {
		t.Errorf("selected %d notes, want 1 (only inside the window)", notes)
	}
	if s.SelectedEventCount() != 0 {
		t.Error("notes view selection touched events")
	}
	s.SelectAllInRange(EventsView)
	if s.SelectedEventCount() != 1 {
		t.Error("events not selected")
	}
}

func TestAdjustSelectedObstacle(t *testing.T) {
	b := NewBeatmap()
	b.Obstacles = []Obstacle{{Beat: 1, Duration: 1, LineIndex: 2, Width: 1, Selected: true}}
	s := storeWith(t, b)

	s.AdjustSelectedObstacle(-5, 0)
	o, _ := s.SelectedObstacle()
	if o.Duration != s.SnapTo() {
		t.Errorf("duration = %v, want clamp to snap %v", o.Duration, s.SnapTo())
	}

	s.AdjustSelectedObstacle(0, 5)
	o, _ = s.SelectedObstacle()
	if o.Width != 2 {
		t.Errorf("width = %d, want 2 (lanes left from index 2)", o.Width)
	}
	s.AdjustSelectedObstacle(0, -5)
	o, _ = s.SelectedObstacle()
	if o.Width != 1 {
		t.Errorf("width = %d, want 1", o.Width)
	}
}

func TestNudgeEventOntoOccupiedBeatReplaces(t *testing.T) {
	b := NewBeatmap()
	b.Events = []Event{
		{ID: 1, TrackID: "laserLeft", Beat: 1, Type: EventOn},
		{ID: 2, TrackID: "laserLeft", Beat: 1.5, Type: EventFlash, Selected: true},
	}
	s := storeWith(t, b)

	s.NudgeSelection(Backwards, EventsView)
	got := s.EventsInRange("laserLeft", 0, 16)
	if len(got) != 1 {
		t.Fatalf("got %d events on laserLeft, want 1: %+v", len(got), got)
	}
	if got[0].ID != 2 || got[0].Beat != 1 || !got[0].Selected {
		t.Errorf("remaining event = %+v, want the nudged one at beat 1", got[0])
	}
}

func TestNudgeEventsClampedTogetherDoesNothing(t *testing.T) {
	b := NewBeatmap()
	b.Events = []Event{
		{ID: 1, TrackID: "laserLeft", Beat: 0, Type: EventOn, Selected: true},
		{ID: 2, TrackID: "laserLeft", Beat: 0.5, Type: EventOn, Selected: true},
	}
	s := storeWith(t, b)

	s.NudgeSelection(Backwards, EventsView)
	got := s.EventsInRange("laserLeft", 0, 16)
	if len(got) != 2 || got[0].Beat != 0 || got[1].Beat != 0.5 {
		t.Errorf("events after blocked nudge = %+v", got)
	}
	if s.Dirty() {
		t.Error("blocked nudge marked the document dirty")
	}
}
