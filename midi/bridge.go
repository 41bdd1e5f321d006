package midi

import (
	"math"
	"sync"

	"beatgrid/debug"
	"beatgrid/editor"
	"beatgrid/theme"
)

// Pad layout: row 0 is the control row, rows 1-7 hold the tracks with the
// top track on row 7. Each column is one snap step from the window start.
const (
	GridSize  = 8
	TrackRows = 7
)

// Control row pads
const (
	PadScrollBack = iota
	PadScrollForward
	PadToolOn
	PadToolOff
	PadToolFlash
	PadToolFade
	PadRed
	PadBlue
)

// Store is what the bridge reads and drives
type Store interface {
	editor.StateReader
	editor.Dispatcher
}

// LED is one pad's color and mode
type LED struct {
	Color   [3]uint8
	Channel uint8
}

// Frame is the full 8x8 pad state, row 0 at the bottom
type Frame [GridSize][GridSize]LED

// NoteToTrack maps a keyboard note onto a track, wrapping around the track list
func NoteToTrack(note uint8) string {
	return editor.Tracks[int(note)%len(editor.Tracks)].ID
}

// PadToTrack returns the track on a pad row
func PadToTrack(row int) (string, bool) {
	if row < 1 || row > TrackRows {
		return "", false
	}
	return editor.Tracks[TrackRows-row].ID, true
}

// PadBeat is the beat under a pad column
func PadBeat(col int, startBeat, snapTo float64) float64 {
	return startBeat + float64(col)*snapTo
}

// Bridge turns controller input into store commands and mirrors the
// visible grid onto Launchpad LEDs
type Bridge struct {
	store Store
	theme *theme.Theme

	mu   sync.Mutex
	sent map[string]*Frame
}

func NewBridge(store Store, th *theme.Theme) *Bridge {
	return &Bridge{
		store: store,
		theme: th,
		sent:  make(map[string]*Frame),
	}
}

// Listen forwards a controller's input until its channels close
func (b *Bridge) Listen(c Controller) {
	pads, notes := c.PadEvents(), c.NoteEvents()
	for pads != nil || notes != nil {
		select {
		case ev, ok := <-pads:
			if !ok {
				pads = nil
				continue
			}
			b.HandlePad(ev)
		case ev, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			b.HandleNote(ev)
		}
	}
	b.Forget(c.ID())
}

// HandleNote places an event at the song position on the note's track
func (b *Bridge) HandleNote(ev NoteEvent) {
	track := NoteToTrack(ev.Note)
	if _, err := b.store.PlaceEvent(track, b.store.SongBeat()); err != nil {
		debug.WithError("midi", err, "place from note")
	}
}

// HandlePad places an event for grid pads or runs a control row action
func (b *Bridge) HandlePad(ev PadEvent) {
	if ev.Col < 0 || ev.Col >= GridSize {
		return
	}
	if ev.Row == 0 {
		b.control(ev.Col)
		return
	}
	track, ok := PadToTrack(ev.Row)
	if !ok {
		return
	}
	beat := PadBeat(ev.Col, b.store.StartBeat(), b.store.SnapTo())

	// a second press on a lit pad clears it
	if _, _, err := b.store.ToggleEventAt(track, beat); err != nil {
		debug.WithError("midi", err, "toggle from pad")
	}
}

func (b *Bridge) control(col int) {
	// scroll by one page of pads
	page := max(1, int(math.Round(GridSize*b.store.SnapTo())))
	switch col {
	case PadScrollBack:
		b.store.ScrollBeats(-page)
	case PadScrollForward:
		b.store.ScrollBeats(page)
	case PadToolOn, PadToolOff, PadToolFlash, PadToolFade:
		b.store.SetTool(editor.LightTools[col-PadToolOn])
	case PadRed:
		b.store.SetColor(editor.ColorRed)
	case PadBlue:
		b.store.SetColor(editor.ColorBlue)
	}
}

// Frame renders the current store state as pad colors
func (b *Bridge) Frame() Frame {
	var f Frame
	th := b.theme
	start, snap, song := b.store.StartBeat(), b.store.SnapTo(), b.store.SongBeat()
	dim := LED{Color: th.RGB(theme.RoleSurface)}
	lit := LED{Color: th.RGB(theme.RoleFG)}

	for row := 1; row <= TrackRows; row++ {
		track, _ := PadToTrack(row)
		for col := 0; col < GridSize; col++ {
			beat := PadBeat(col, start, snap)
			if e, ok := b.store.EventAt(track, beat); ok {
				f[row][col] = b.eventLED(e)
				continue
			}
			if song >= beat && song < beat+snap {
				f[row][col] = LED{Color: th.RGB(theme.RoleMuted)}
			}
		}
	}

	f[0][PadScrollBack] = dim
	f[0][PadScrollForward] = dim
	for i, tool := range editor.LightTools {
		f[0][PadToolOn+i] = dim
		if tool == b.store.Tool() {
			f[0][PadToolOn+i] = lit
		}
	}
	f[0][PadRed] = LED{Color: th.LightRGB(string(editor.ColorRed))}
	f[0][PadBlue] = LED{Color: th.LightRGB(string(editor.ColorBlue))}
	if b.store.Color() == editor.ColorBlue {
		f[0][PadBlue].Channel = ChannelPulse
	} else {
		f[0][PadRed].Channel = ChannelPulse
	}
	return f
}

func (b *Bridge) eventLED(e editor.Event) LED {
	switch e.Type {
	case editor.EventOff:
		return LED{Color: b.theme.RGB(theme.RoleSurface)}
	case editor.EventRotate, editor.EventZoom:
		return LED{Color: b.theme.RGB(theme.RoleAccent)}
	case editor.EventFlash:
		return LED{Color: b.theme.LightRGB(string(e.Color)), Channel: ChannelFlash}
	case editor.EventFade:
		return LED{Color: b.theme.LightRGB(string(e.Color)), Channel: ChannelPulse}
	}
	return LED{Color: b.theme.LightRGB(string(e.Color))}
}

// Diff lists the pads that changed between two frames. A nil prev sends all.
func Diff(prev *Frame, next Frame) []LEDUpdate {
	var out []LEDUpdate
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if prev != nil && prev[row][col] == next[row][col] {
				continue
			}
			led := next[row][col]
			out = append(out, LEDUpdate{Row: row, Col: col, Color: led.Color, Channel: led.Channel})
		}
	}
	return out
}

// Sync sends only the pads that changed since the last successful sync of c
func (b *Bridge) Sync(c Controller) error {
	if c == nil || c.Type() != ControllerLaunchpad {
		return nil
	}
	next := b.Frame()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := c.SetLEDBatch(Diff(b.sent[c.ID()], next)); err != nil {
		return err
	}
	b.sent[c.ID()] = &next
	return nil
}

// Forget drops the last frame sent to a controller
func (b *Bridge) Forget(id string) {
	b.mu.Lock()
	delete(b.sent, id)
	b.mu.Unlock()
}
