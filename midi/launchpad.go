package midi

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"beatgrid/debug"
)

// Novation SysEx header for the Launchpad X, without the leading F0
var lpHeader = []byte{0x00, 0x20, 0x29, 0x02, 0x0C}

const (
	lpCmdLighting   = 0x03
	lpCmdProgrammer = 0x0E
	lpCmdBrightness = 0x08

	lpLightStatic = 0
	lpLightFlash  = 1
	lpLightPulse  = 2
	lpLightRGB    = 3

	// colour specs per lighting message
	lpMaxSpecs = 81
)

// LaunchpadController drives a Launchpad X in programmer mode. The Mini and
// Pro share the layout.
type LaunchpadController struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:       id,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}

	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("open output", "Could not send to "+id))
		}
		lp.send = send
		if err := lp.sysex(lpCmdProgrammer, 0x01); err != nil {
			return nil, fault.Wrap(err, fmsg.With("programmer mode"))
		}
		if err := lp.sysex(lpCmdBrightness, 0x7F); err != nil {
			debug.WithError("midi", err, "brightness")
		}
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.receive)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("open input", "Could not listen to "+id))
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

func (lp *LaunchpadController) sysex(data ...byte) error {
	return lp.send(gomidi.SysEx(append(append([]byte{}, lpHeader...), data...)))
}

// receive turns grid notes and top row CCs into pad presses
func (lp *LaunchpadController) receive(msg gomidi.Message, _ int32) {
	var channel, key, value uint8
	row, col := -1, -1
	switch {
	case msg.GetNoteOn(&channel, &key, &value) && value > 0:
		row, col = noteToRowCol(key)
	case msg.GetControlChange(&channel, &key, &value) && value > 0:
		row, col = ccToRowCol(key)
	}
	if row < 0 {
		return
	}
	select {
	case lp.padChan <- PadEvent{Row: row, Col: col, Velocity: value}:
	default:
	}
}

func (lp *LaunchpadController) ID() string                   { return lp.id }
func (lp *LaunchpadController) Type() ControllerType         { return ControllerLaunchpad }
func (lp *LaunchpadController) PadEvents() <-chan PadEvent   { return lp.padChan }
func (lp *LaunchpadController) NoteEvents() <-chan NoteEvent { return lp.noteChan }

// SetLEDBatch sends updates as lighting SysEx messages of up to 81 pads each
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil {
		return nil
	}
	for _, msg := range lightingMessages(updates) {
		if err := lp.sysex(msg...); err != nil {
			return fault.Wrap(err, fmsg.With("send leds"))
		}
	}
	debug.LogEvery(50, "lp-send", "batch of %d", len(updates))
	return nil
}

// lightingMessages encodes updates as lighting command payloads. Static
// pads use exact RGB; flashing and pulsing pads need palette colours.
func lightingMessages(updates []LEDUpdate) [][]byte {
	var out [][]byte
	for start := 0; start < len(updates); start += lpMaxSpecs {
		end := min(start+lpMaxSpecs, len(updates))
		msg := []byte{lpCmdLighting}
		for _, u := range updates[start:end] {
			index := rowColToNote(u.Row, u.Col)
			switch u.Channel {
			case ChannelFlash:
				msg = append(msg, lpLightFlash, index, 0, mapRGBToLaunchpad(u.Color))
			case ChannelPulse:
				msg = append(msg, lpLightPulse, index, mapRGBToLaunchpad(u.Color))
			default:
				if u.Color == [3]uint8{} {
					msg = append(msg, lpLightStatic, index, 0)
					continue
				}
				msg = append(msg, lpLightRGB, index, u.Color[0]>>1, u.Color[1]>>1, u.Color[2]>>1)
			}
		}
		out = append(out, msg)
	}
	return out
}

// ClearLEDs turns every pad off, top row and side column included
func (lp *LaunchpadController) ClearLEDs() error {
	var updates []LEDUpdate
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			if row == 8 && col == 8 {
				continue // logo, not a pad
			}
			updates = append(updates, LEDUpdate{Row: row, Col: col})
		}
	}
	return lp.SetLEDBatch(updates)
}

func (lp *LaunchpadController) Close() error {
	if err := lp.ClearLEDs(); err != nil {
		debug.WithError("midi", err, "clear leds on close")
	}
	if lp.send != nil {
		// back to live mode
		if err := lp.sysex(lpCmdProgrammer, 0x00); err != nil {
			debug.WithError("midi", err, "live mode")
		}
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.padChan)
	close(lp.noteChan)
	return nil
}

// launchpadPalette is a subset of the Launchpad palette: {velocity, R, G, B}
var launchpadPalette = [][4]uint8{
	{0, 0, 0, 0},
	{5, 255, 0, 0},
	{6, 255, 80, 80},
	{7, 180, 60, 60},
	{9, 255, 100, 0},
	{13, 255, 200, 0},
	{21, 0, 255, 0},
	{37, 0, 200, 200},
	{43, 40, 60, 120},
	{45, 0, 100, 255},
	{47, 80, 150, 255},
	{49, 150, 0, 200},
	{53, 255, 80, 180},
	{119, 255, 255, 255},
}

// mapRGBToLaunchpad finds the nearest palette velocity for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	best, bestDist := uint8(0), 1<<30
	for _, p := range launchpadPalette {
		dr := int(rgb[0]) - int(p[1])
		dg := int(rgb[1]) - int(p[2])
		db := int(rgb[2]) - int(p[3])
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = p[0], d
		}
	}
	return best
}

// Programmer mode layout: grid row r col c is note 10*(r+1)+c+1, so the
// bottom row is 11-18 and the right-hand scene column is 19..89. The top row
// sends CC 91-98 and is lit by the same indexes.

func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
