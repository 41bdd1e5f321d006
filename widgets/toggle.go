package widgets

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"beatgrid/theme"
)

// TogglePart is the clickable piece of a toggle
type TogglePart int

const (
	PartNone TogglePart = iota
	PartOff
	PartTrack
	PartOn
)

const toggleTrackWidth = 3

// Toggle is a two-state switch drawn as: off icon, rail with ball, on icon
type Toggle struct {
	ID      string
	Value   bool
	OffIcon string
	OnIcon  string
	Label   string
}

func (t Toggle) zoneID(p TogglePart) string {
	switch p {
	case PartOff:
		return t.ID + ":off"
	case PartOn:
		return t.ID + ":on"
	default:
		return t.ID + ":track"
	}
}

// Click returns the value after clicking part
func (t Toggle) Click(p TogglePart) bool {
	switch p {
	case PartOff:
		return false
	case PartOn:
		return true
	case PartTrack:
		return !t.Value
	}
	return t.Value
}

// PartAt finds which part of the toggle msg landed on
func (t Toggle) PartAt(z *zone.Manager, msg tea.MouseMsg) TogglePart {
	for _, p := range []TogglePart{PartOff, PartTrack, PartOn} {
		if Hit(z, t.zoneID(p), msg) {
			return p
		}
	}
	return PartNone
}

// HandleMouse applies a left click to the toggle. It returns the new value
// and whether the click hit the toggle at all.
func (t Toggle) HandleMouse(z *zone.Manager, msg tea.MouseMsg) (bool, bool) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return t.Value, false
	}
	p := t.PartAt(z, msg)
	if p == PartNone {
		return t.Value, false
	}
	return t.Click(p), true
}

func (t Toggle) track(th *theme.Theme) string {
	rail := strings.Repeat(string(th.Symbols.Track), toggleTrackWidth-1)
	ball := lipgloss.NewStyle().Foreground(th.Accent()).Render(string(th.Symbols.Ball))
	railStyle := lipgloss.NewStyle().Foreground(th.Muted())
	if t.Value {
		return railStyle.Render(rail) + ball
	}
	return ball + railStyle.Render(rail)
}

// View renders the toggle; the inactive icon is dimmed
func (t Toggle) View(th *theme.Theme, z *zone.Manager) string {
	active := lipgloss.NewStyle().Foreground(th.FG())
	dim := lipgloss.NewStyle().Foreground(th.Muted())

	off, on := active, dim
	if t.Value {
		off, on = dim, active
	}

	parts := []string{
		Mark(z, t.zoneID(PartOff), off.Render(t.OffIcon)),
		Mark(z, t.zoneID(PartTrack), t.track(th)),
		Mark(z, t.zoneID(PartOn), on.Render(t.OnIcon)),
	}
	out := strings.Join(parts, " ")
	if t.Label != "" {
		out = dim.Render(t.Label) + " " + out
	}
	return out
}
