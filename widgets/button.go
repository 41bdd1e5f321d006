package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"beatgrid/theme"
)

// Button is a clickable action label
type Button struct {
	ID       string
	Label    string
	Tooltip  string
	Disabled bool
}

// ZoneID is the click zone of the button
func (b Button) ZoneID() string {
	return "btn:" + b.ID
}

func (b Button) View(th *theme.Theme, z *zone.Manager) string {
	style := lipgloss.NewStyle().
		Foreground(th.FG()).
		Background(th.Surface()).
		Padding(0, 1)
	if b.Disabled {
		style = style.Foreground(th.Muted()).Background(th.BG())
		// disabled buttons have no zone, so clicks fall through
		return style.Render(b.Label)
	}
	return Mark(z, b.ZoneID(), style.Render(b.Label))
}

// ButtonRow renders buttons separated by a single space
func ButtonRow(th *theme.Theme, z *zone.Manager, buttons ...Button) string {
	parts := make([]string, 0, len(buttons))
	for _, b := range buttons {
		parts = append(parts, b.View(th, z))
	}
	return strings.Join(parts, " ")
}

// Heading renders a section title
func Heading(th *theme.Theme, title string) string {
	return lipgloss.NewStyle().Foreground(th.Accent()).Bold(true).Render(title)
}

// Tooltip renders a hover hint
func Tooltip(th *theme.Theme, text string) string {
	return lipgloss.NewStyle().
		Foreground(th.FG()).
		Background(th.Muted()).
		Padding(0, 1).
		Render(text)
}
