package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"beatgrid/editor"
	"beatgrid/theme"
	"beatgrid/widgets"
)

// TooltipDelay is how long the pointer rests on a button before its hint shows
const TooltipDelay = 500 * time.Millisecond

// Selection panel actions
const (
	actSwapH     = "swap-h"
	actSwapV     = "swap-v"
	actNudgeFwd  = "nudge-fwd"
	actNudgeBack = "nudge-back"
	actDeselect  = "deselect"
	actCut       = "cut"
	actCopy      = "copy"
	actPaste     = "paste"
	actDurDown   = "dur-down"
	actDurUp     = "dur-up"
	actWidthDown = "width-down"
	actWidthUp   = "width-up"
)

type tooltipMsg struct{ seq int }

// SelectionInfo summarizes the note selection and offers actions on it
type SelectionInfo struct {
	state    editor.StateReader
	dispatch editor.Dispatcher
	theme    *theme.Theme
	zone     *zone.Manager
	meta     string

	hover    string
	hoverSeq int
	tooltip  string
}

func NewSelectionInfo(state editor.StateReader, dispatch editor.Dispatcher, th *theme.Theme, z *zone.Manager) *SelectionInfo {
	return &SelectionInfo{
		state:    state,
		dispatch: dispatch,
		theme:    th,
		zone:     z,
		meta:     MetaKeyLabel(),
	}
}

// Counts renders "N note(s), M wall(s)"
func Counts(notes, walls int) string {
	var parts []string
	if notes > 0 {
		parts = append(parts, pluralize(notes, "note"))
	}
	if walls > 0 {
		parts = append(parts, pluralize(walls, "wall"))
	}
	return strings.Join(parts, ", ")
}

func pluralize(n int, label string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, label)
	}
	return fmt.Sprintf("%d %ss", n, label)
}

// ShowObstacleTweaks is true when exactly one wall and no notes are selected
func ShowObstacleTweaks(notes, walls int) bool {
	return walls == 1 && notes == 0
}

func (s *SelectionInfo) buttons() [][]widgets.Button {
	return [][]widgets.Button{
		{
			{ID: actSwapH, Label: "⇆", Tooltip: "Swap horizontally (H)"},
			{ID: actSwapV, Label: "⇅", Tooltip: "Swap vertically (V)"},
		},
		{
			{ID: actNudgeFwd, Label: "↑", Tooltip: fmt.Sprintf("Nudge forwards (%s + ↑)", s.meta)},
			{ID: actNudgeBack, Label: "↓", Tooltip: fmt.Sprintf("Nudge backwards (%s + ↓)", s.meta)},
		},
		{{ID: actDeselect, Label: "Deselect"}},
		{{ID: actCut, Label: "Cut"}, {ID: actCopy, Label: "Copy"}},
		{{ID: actPaste, Label: "Paste", Disabled: !s.state.HasCopiedNotes()}},
	}
}

func (s *SelectionInfo) tweakButtons() []widgets.Button {
	return []widgets.Button{
		{ID: actDurDown, Label: "-", Tooltip: "Shorter"},
		{ID: actDurUp, Label: "+", Tooltip: "Longer"},
		{ID: actWidthDown, Label: "-", Tooltip: "Narrower"},
		{ID: actWidthUp, Label: "+", Tooltip: "Wider"},
	}
}

func (s *SelectionInfo) allButtons() []widgets.Button {
	var out []widgets.Button
	for _, row := range s.buttons() {
		out = append(out, row...)
	}
	notes, walls := s.state.SelectionCounts()
	if ShowObstacleTweaks(notes, walls) {
		out = append(out, s.tweakButtons()...)
	}
	return out
}

func (s *SelectionInfo) button(id string) (widgets.Button, bool) {
	for _, b := range s.allButtons() {
		if b.ID == id {
			return b, true
		}
	}
	return widgets.Button{}, false
}

// Tooltip is the hint currently shown, if any
func (s *SelectionInfo) Tooltip() string {
	return s.tooltip
}

// SetHover moves the hover to button id ("" for none). Leaving hides the
// tooltip at once; resting on a button schedules it after TooltipDelay.
func (s *SelectionInfo) SetHover(id string) tea.Cmd {
	if id == s.hover {
		return nil
	}
	s.hover = id
	s.hoverSeq++
	s.tooltip = ""
	if id == "" {
		return nil
	}
	if b, ok := s.button(id); !ok || b.Tooltip == "" {
		return nil
	}
	seq := s.hoverSeq
	return tea.Tick(TooltipDelay, func(time.Time) tea.Msg { return tooltipMsg{seq: seq} })
}

func (s *SelectionInfo) showTooltip(msg tooltipMsg) {
	if msg.seq != s.hoverSeq || s.hover == "" {
		return
	}
	if b, ok := s.button(s.hover); ok {
		s.tooltip = b.Tooltip
	}
}

// Activate runs the action of button id. Disabled buttons do nothing.
func (s *SelectionInfo) Activate(id string) {
	b, ok := s.button(id)
	if !ok || b.Disabled {
		return
	}
	d := s.dispatch
	switch id {
	case actSwapH:
		d.SwapSelectedNotes(editor.Horizontal)
	case actSwapV:
		d.SwapSelectedNotes(editor.Vertical)
	case actNudgeFwd:
		d.NudgeSelection(editor.Forwards, editor.NotesView)
	case actNudgeBack:
		d.NudgeSelection(editor.Backwards, editor.NotesView)
	case actDeselect:
		d.DeselectAll(editor.NotesView)
	case actCut:
		d.CutSelection(editor.NotesView)
	case actCopy:
		d.CopySelection(editor.NotesView)
	case actPaste:
		d.PasteSelection(editor.NotesView)
	case actDurDown:
		d.AdjustSelectedObstacle(-s.state.SnapTo(), 0)
	case actDurUp:
		d.AdjustSelectedObstacle(s.state.SnapTo(), 0)
	case actWidthDown:
		d.AdjustSelectedObstacle(0, -1)
	case actWidthUp:
		d.AdjustSelectedObstacle(0, 1)
	}
}

// buttonAt finds the enabled button under the pointer
func (s *SelectionInfo) buttonAt(msg tea.MouseMsg) string {
	for _, b := range s.allButtons() {
		if !b.Disabled && widgets.Hit(s.zone, b.ZoneID(), msg) {
			return b.ID
		}
	}
	return ""
}

// HandleMouse updates hover state and runs clicked actions
func (s *SelectionInfo) HandleMouse(msg tea.MouseMsg) (bool, tea.Cmd) {
	id := s.buttonAt(msg)
	cmd := s.SetHover(id)
	if id != "" && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		s.Activate(id)
	}
	return id != "", cmd
}

func (s *SelectionInfo) View() string {
	th := s.theme
	highlight := lipgloss.NewStyle().Foreground(th.Accent())
	var lines []string

	lines = append(lines, widgets.Heading(th, "Selection"))
	notes, walls := s.state.SelectionCounts()
	if counts := Counts(notes, walls); counts != "" {
		lines = append(lines, highlight.Render(counts))
	} else {
		lines = append(lines, lipgloss.NewStyle().Foreground(th.Muted()).Render("nothing selected"))
	}
	lines = append(lines, "")

	if ShowObstacleTweaks(notes, walls) {
		o, _ := s.state.SelectedObstacle()
		tw := s.tweakButtons()
		lines = append(lines,
			widgets.Heading(th, "Selected Wall"),
			fmt.Sprintf("Duration %s %5.2f", widgets.ButtonRow(th, s.zone, tw[0], tw[1]), o.Duration),
			fmt.Sprintf("Width    %s %5d", widgets.ButtonRow(th, s.zone, tw[2], tw[3]), o.Width),
			"")
	}

	lines = append(lines, widgets.Heading(th, "Actions"))
	for _, row := range s.buttons() {
		lines = append(lines, widgets.ButtonRow(th, s.zone, row...))
	}
	return strings.Join(lines, "\n")
}
