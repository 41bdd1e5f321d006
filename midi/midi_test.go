package midi

import (
	"errors"
	"sync"
	"testing"

	"beatgrid/editor"
	"beatgrid/theme"
)

type fakeController struct {
	id   string
	kind ControllerType

	mu      sync.Mutex
	batches [][]LEDUpdate
	fail    error

	pads  chan PadEvent
	notes chan NoteEvent
}

func newFake(kind ControllerType) *fakeController {
	return &fakeController{
		id:    "fake",
		kind:  kind,
		pads:  make(chan PadEvent, 8),
		notes: make(chan NoteEvent, 8),
	}
}

func (f *fakeController) ID() string                   { return f.id }
func (f *fakeController) Type() ControllerType         { return f.kind }
func (f *fakeController) PadEvents() <-chan PadEvent   { return f.pads }
func (f *fakeController) NoteEvents() <-chan NoteEvent { return f.notes }
func (f *fakeController) ClearLEDs() error             { return nil }
func (f *fakeController) Close() error                 { return nil }

func (f *fakeController) SetLEDBatch(u []LEDUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, u)
	return f.fail
}

func newBridge(t *testing.T) (*Bridge, *editor.Store) {
	t.Helper()
	s := editor.NewStore(editor.DefaultSettings())
	s.SetClipboardWriter(nil)
	return NewBridge(s, theme.New(theme.MustBuiltin(theme.DefaultPalette))), s
}

func TestNoteToTrack(t *testing.T) {
	tests := map[uint8]string{
		0:  "laserLeft",
		6:  "smallRing",
		7:  "laserLeft",
		60: editor.Tracks[60%7].ID,
	}
	for note, want := range tests {
		if got := NoteToTrack(note); got != want {
			t.Errorf("NoteToTrack(%d) = %s, want %s", note, got, want)
		}
	}
}

func TestPadToTrack(t *testing.T) {
	if id, ok := PadToTrack(7); !ok || id != "laserLeft" {
		t.Errorf("row 7 = %s, %v", id, ok)
	}
	if id, ok := PadToTrack(1); !ok || id != "smallRing" {
		t.Errorf("row 1 = %s, %v", id, ok)
	}
	for _, row := range []int{0, 8, -1} {
		if _, ok := PadToTrack(row); ok {
			t.Errorf("row %d mapped to a track", row)
		}
	}
	if got := PadBeat(3, 4, 0.5); got != 5.5 {
		t.Errorf("PadBeat = %v, want 5.5", got)
	}
}

func TestHandlePadTogglesEvent(t *testing.T) {
	b, s := newBridge(t)
	s.ScrollBeats(2)

	b.HandlePad(PadEvent{Row: 7, Col: 2, Velocity: 100})
	if _, ok := s.EventAt("laserLeft", 3); !ok {
		t.Fatal("pad did not place an event at start + 2*snap")
	}
	b.HandlePad(PadEvent{Row: 7, Col: 2, Velocity: 100})
	if _, ok := s.EventAt("laserLeft", 3); ok {
		t.Error("second press did not clear the event")
	}

	// side column and top row are ignored
	b.HandlePad(PadEvent{Row: 3, Col: 8})
	b.HandlePad(PadEvent{Row: 8, Col: 0})
	if len(s.Beatmap().Events) != 0 {
		t.Error("non-grid pads placed events")
	}
}

func TestHandlePadControlRow(t *testing.T) {
	b, s := newBridge(t)

	b.HandlePad(PadEvent{Row: 0, Col: PadScrollForward})
	if s.StartBeat() != 4 {
		t.Errorf("start = %v, want 4 (8 pads of 0.5)", s.StartBeat())
	}
	b.HandlePad(PadEvent{Row: 0, Col: PadScrollBack})
	if s.StartBeat() != 0 {
		t.Errorf("start = %v, want 0", s.StartBeat())
	}
	b.HandlePad(PadEvent{Row: 0, Col: PadToolFade})
	if s.Tool() != editor.EventFade {
		t.Errorf("tool = %s", s.Tool())
	}
	b.HandlePad(PadEvent{Row: 0, Col: PadBlue})
	if s.Color() != editor.ColorBlue {
		t.Errorf("color = %s", s.Color())
	}
}

func TestHandleNotePlacesAtSongPosition(t *testing.T) {
	b, s := newBridge(t)
	s.SeekTo(6.5)
	b.HandleNote(NoteEvent{Note: 9, Velocity: 90})
	if _, ok := s.EventAt(editor.Tracks[2].ID, 6.5); !ok {
		t.Error("note did not place on track note%7 at the song position")
	}
}

func TestSyncSendsOnlyChanges(t *testing.T) {
	b, s := newBridge(t)
	lp := newFake(ControllerLaunchpad)

	if err := b.Sync(lp); err != nil {
		t.Fatal(err)
	}
	if n := len(lp.batches[0]); n != GridSize*GridSize {
		t.Fatalf("first sync sent %d pads, want all %d", n, GridSize*GridSize)
	}

	s.PlaceEvent("laserBack", 1)
	b.Sync(lp)
	if n := len(lp.batches[1]); n != 1 {
		t.Errorf("second sync sent %d pads, want 1", n)
	}
	u := lp.batches[1][0]
	if u.Row != 5 || u.Col != 2 {
		t.Errorf("changed pad = (%d,%d), want (5,2)", u.Row, u.Col)
	}

	b.Forget(lp.ID())
	b.Sync(lp)
	if n := len(lp.batches[2]); n != GridSize*GridSize {
		t.Errorf("sync after Forget sent %d pads", n)
	}
}

func TestSyncResendsAfterFailedWrite(t *testing.T) {
	b, s := newBridge(t)
	lp := newFake(ControllerLaunchpad)
	if err := b.Sync(lp); err != nil {
		t.Fatal(err)
	}

	s.PlaceEvent("laserBack", 1)
	lp.fail = errors.New("port gone")
	if err := b.Sync(lp); err == nil {
		t.Fatal("write error not returned")
	}

	lp.fail = nil
	if err := b.Sync(lp); err != nil {
		t.Fatal(err)
	}
	if n := len(lp.batches[2]); n != 1 {
		t.Errorf("retry sent %d pads, want the 1 unsent change", n)
	}
}

func TestConcurrentPadPressesToggleOnce(t *testing.T) {
	b, s := newBridge(t)
	for i := 0; i < 100; i++ {
		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandlePad(PadEvent{Row: 7, Col: 3, Velocity: 100})
			}()
		}
		wg.Wait()
		// two presses always cancel out
		if got := s.EventsInRange("laserLeft", 0, 16); len(got) != 0 {
			t.Fatalf("iteration %d: %d events left after two presses", i, len(got))
		}
	}
}

func TestSyncSkipsKeyboards(t *testing.T) {
	b, _ := newBridge(t)
	kb := newFake(ControllerKeyboard)
	b.Sync(kb)
	if len(kb.batches) != 0 {
		t.Error("keyboard received LED updates")
	}
}

func TestListenDispatchesUntilClosed(t *testing.T) {
	b, s := newBridge(t)
	c := newFake(ControllerLaunchpad)
	c.pads <- PadEvent{Row: 6, Col: 0}
	c.notes <- NoteEvent{Note: 3}
	close(c.pads)
	close(c.notes)

	b.Listen(c) // returns once both channels are closed
	if _, ok := s.EventAt("laserRight", 0); !ok {
		t.Error("pad event not dispatched")
	}
	if _, ok := s.EventAt("primaryLight", 0); !ok {
		t.Error("note event not dispatched")
	}
}

func TestDefaultClassifier(t *testing.T) {
	tests := map[string]ControllerType{
		"Launchpad X LPX MIDI":    ControllerLaunchpad,
		"Launchpad Mini MK3 MIDI": ControllerLaunchpad,
		"Launchpad X LPX DAW":     ControllerUnknown,
		"Midi Through Port-0":     ControllerUnknown,
		"Arturia KeyStep 32":      ControllerKeyboard,
	}
	for name, want := range tests {
		if got := DefaultClassifier(name).Type; got != want {
			t.Errorf("%q = %s, want %s", name, got, want)
		}
	}
}

func TestStaleIDs(t *testing.T) {
	current := map[string]Controller{"a": nil, "b": nil, "c": nil}
	got := staleIDs(current, map[string]bool{"b": true})
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("stale = %v", got)
	}
}

func TestLaunchpadNoteMapping(t *testing.T) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 9; col++ {
			r, c := noteToRowCol(rowColToNote(row, col))
			if r != row || c != col {
				t.Errorf("(%d,%d) round-tripped to (%d,%d)", row, col, r, c)
			}
		}
	}
	if r, _ := noteToRowCol(5); r != -1 {
		t.Error("note 5 mapped to a pad")
	}
	if r, c := ccToRowCol(93); r != 8 || c != 2 {
		t.Errorf("cc 93 = (%d,%d)", r, c)
	}
}

func TestMapRGBToLaunchpad(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{0, 0, 0}, 0},
		{[3]uint8{255, 0, 0}, 5},
		{[3]uint8{255, 255, 255}, 119},
		{[3]uint8{0, 100, 250}, 45},
	}
	for _, tt := range tests {
		if got := mapRGBToLaunchpad(tt.rgb); got != tt.want {
			t.Errorf("mapRGBToLaunchpad(%v) = %d, want %d", tt.rgb, got, tt.want)
		}
	}
}

func TestLightingMessages(t *testing.T) {
	msgs := lightingMessages([]LEDUpdate{
		{Row: 0, Col: 0, Color: [3]uint8{0xef, 0x44, 0x44}},
		{Row: 1, Col: 2, Color: [3]uint8{255, 0, 0}, Channel: ChannelFlash},
		{Row: 8, Col: 0, Color: [3]uint8{0, 100, 255}, Channel: ChannelPulse},
		{Row: 2, Col: 2},
	})
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	want := []byte{
		lpCmdLighting,
		lpLightRGB, 11, 0x77, 0x22, 0x22,
		lpLightFlash, 23, 0, 5,
		lpLightPulse, 91, 45,
		lpLightStatic, 33, 0,
	}
	if string(msgs[0]) != string(want) {
		t.Errorf("message = % x, want % x", msgs[0], want)
	}

	var many []LEDUpdate
	for i := 0; i < 100; i++ {
		many = append(many, LEDUpdate{Row: i % 8, Col: i % 8})
	}
	if got := lightingMessages(many); len(got) != 2 {
		t.Errorf("100 updates split into %d messages, want 2", len(got))
	}
}
