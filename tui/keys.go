package tui

import (
	"runtime"

	"github.com/charmbracelet/bubbles/key"

	"beatgrid/widgets"
)

// Key builds a binding whose help shows the first key
func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

// MetaKeyLabel names the modifier used for nudging
func MetaKeyLabel() string {
	if runtime.GOOS == "darwin" {
		return "⌘"
	}
	return "ctrl"
}

type keyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Save    key.Binding
	Restore key.Binding
	View    key.Binding

	ScrollBack    key.Binding
	ScrollForward key.Binding
	ZoomIn        key.Binding
	ZoomOut       key.Binding
	SnapFiner     key.Binding
	SnapCoarser   key.Binding
	SeekBack      key.Binding
	SeekForward   key.Binding

	ToolOn     key.Binding
	ToolOff    key.Binding
	ToolFlash  key.Binding
	ToolFade   key.Binding
	Red        key.Binding
	Blue       key.Binding
	SpeedDown  key.Binding
	SpeedUp    key.Binding
	NoteTick   key.Binding
	Metronome  key.Binding
	SelectAll  key.Binding
	Deselect   key.Binding
	SwapH      key.Binding
	SwapV      key.Binding
	NudgeFwd   key.Binding
	NudgeBack  key.Binding
	Cut        key.Binding
	Copy       key.Binding
	Paste      key.Binding
}

func defaultKeyMap() keyMap {
	meta := MetaKeyLabel()
	return keyMap{
		Quit:    Key("quit", "q", "ctrl+c"),
		Help:    Key("help", "?"),
		Save:    Key("save", "ctrl+s"),
		Restore: Key("restore autosave", "ctrl+r"),
		View:    Key("switch notes/events", "tab"),

		ScrollBack:    Key("scroll back", "left", "h"),
		ScrollForward: Key("scroll forward", "right", "l"),
		ZoomIn:        Key("zoom in", "+", "="),
		ZoomOut:       Key("zoom out", "-"),
		SnapFiner:     Key("finer snap", "]"),
		SnapCoarser:   Key("coarser snap", "["),
		SeekBack:      Key("song position back", ","),
		SeekForward:   Key("song position forward", "."),

		ToolOn:    Key("tool: on", "1"),
		ToolOff:   Key("tool: off", "2"),
		ToolFlash: Key("tool: flash", "3"),
		ToolFade:  Key("tool: fade", "4"),
		Red:       Key("red", "r"),
		Blue:      Key("blue", "b"),
		SpeedDown: Key("laser speed -", "9"),
		SpeedUp:   Key("laser speed +", "0"),
		NoteTick:  Key("note ticks", "t"),
		Metronome: Key("metronome", "m"),

		SelectAll: Key("select all in view", "ctrl+a"),
		Deselect:  Key("deselect", "esc"),
		SwapH:     Key("swap horizontally", "H"),
		SwapV:     Key("swap vertically", "V"),
		NudgeFwd: key.NewBinding(key.WithKeys("ctrl+up", "alt+up"),
			key.WithHelp(meta+"+↑", "nudge forwards")),
		NudgeBack: key.NewBinding(key.WithKeys("ctrl+down", "alt+down"),
			key.WithHelp(meta+"+↓", "nudge backwards")),
		Cut:   Key("cut", "x"),
		Copy:  Key("copy", "y"),
		Paste: Key("paste at song position", "p"),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ScrollBack, k.ScrollForward, k.ZoomIn, k.ZoomOut, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ScrollBack, k.ScrollForward, k.ZoomIn, k.ZoomOut, k.SnapFiner, k.SnapCoarser, k.SeekBack, k.SeekForward},
		{k.ToolOn, k.ToolOff, k.ToolFlash, k.ToolFade, k.Red, k.Blue, k.SpeedDown, k.SpeedUp, k.NoteTick, k.Metronome},
		{k.SelectAll, k.Deselect, k.SwapH, k.SwapV, k.NudgeFwd, k.NudgeBack, k.Cut, k.Copy, k.Paste},
		{k.View, k.Save, k.Restore, k.Help, k.Quit},
	}
}

func (k keyMap) sections() []widgets.KeySection {
	full := k.FullHelp()
	titles := []string{"Navigate", "Events", "Selection", "File"}
	out := make([]widgets.KeySection, len(full))
	for i, group := range full {
		out[i] = widgets.Section(titles[i], group...)
	}
	return out
}
