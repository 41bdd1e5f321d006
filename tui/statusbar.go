package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"beatgrid/editor"
	"beatgrid/theme"
	"beatgrid/widgets"
)

// StatusBar shows editor settings and the toggles for ticks and metronome
type StatusBar struct {
	state    editor.StateReader
	dispatch editor.Dispatcher
	theme    *theme.Theme
	zone     *zone.Manager

	Err     error
	Devices []string
}

func NewStatusBar(state editor.StateReader, dispatch editor.Dispatcher, th *theme.Theme, z *zone.Manager) *StatusBar {
	return &StatusBar{state: state, dispatch: dispatch, theme: th, zone: z}
}

func (b *StatusBar) noteTick() widgets.Toggle {
	return widgets.Toggle{ID: "note-tick", Label: "ticks", Value: b.state.NoteTick(), OffIcon: "·", OnIcon: "♪"}
}

func (b *StatusBar) metronome() widgets.Toggle {
	return widgets.Toggle{ID: "metronome", Label: "metronome", Value: b.state.Metronome(), OffIcon: "·", OnIcon: "♩"}
}

// HandleMouse flips a toggle when one is clicked
func (b *StatusBar) HandleMouse(msg tea.MouseMsg) bool {
	if v, hit := b.noteTick().HandleMouse(b.zone, msg); hit {
		b.dispatch.SetNoteTick(v)
		return true
	}
	if v, hit := b.metronome().HandleMouse(b.zone, msg); hit {
		b.dispatch.SetMetronome(v)
		return true
	}
	return false
}

// ErrorText is the user-facing message of err
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	if chain := fault.Flatten(err); len(chain) > 0 {
		return chain[0].Message
	}
	return err.Error()
}

func formatBeat(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

// Readout is the plain text part of the status bar
func (b *StatusBar) Readout() string {
	s := b.state
	w := s.Window()
	parts := []string{
		fmt.Sprintf("beats %s–%s", formatBeat(w.Start), formatBeat(w.End)),
		"snap " + formatBeat(s.SnapTo()),
		fmt.Sprintf("zoom %d", s.ZoomLevel()),
		fmt.Sprintf("%c %.2f", b.theme.Symbols.Playhead, s.SongBeat()),
	}
	tool := string(s.Tool())
	if s.Tool() != editor.EventOff {
		tool += " " + string(s.Color())
	}
	if s.LaserSpeed() > 0 {
		tool += fmt.Sprintf(" %c%d", b.theme.Symbols.Speed, s.LaserSpeed())
	}
	parts = append(parts, tool)

	name := "untitled"
	if p := s.Path(); p != "" {
		name = filepath.Base(p)
	}
	if s.Dirty() {
		name += "*"
	}
	parts = append(parts, name)
	return strings.Join(parts, "  ")
}

func (b *StatusBar) View() string {
	th := b.theme
	fg := lipgloss.NewStyle().Foreground(th.FG())
	swatch := lipgloss.NewStyle().Foreground(th.Light(string(b.state.Color()))).Render(string(th.Symbols.On))

	line := strings.Join([]string{
		fg.Render(b.Readout()),
		swatch,
		b.noteTick().View(th, b.zone),
		b.metronome().View(th, b.zone),
	}, "  ")

	if len(b.Devices) > 0 {
		line += "  " + lipgloss.NewStyle().Foreground(th.Muted()).Render(strings.Join(b.Devices, ", "))
	}
	if b.Err != nil {
		errStyle := lipgloss.NewStyle().Foreground(theme.RedLight)
		line += "\n" + errStyle.Render("ERROR: "+ErrorText(b.Err))
	}
	if b.state.IsLoading() {
		line += "\n" + lipgloss.NewStyle().Foreground(th.Muted()).Render("loading…")
	}
	return line
}
