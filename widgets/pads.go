package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"beatgrid/theme"
)

// RenderPad renders a single colored pad
func RenderPad(color theme.RGB) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color.Hex()))
	return style.Render("■")
}

// RenderPadGrid renders an 8x8 grid of pads (row 0 at bottom, row 7 at top)
func RenderPadGrid(grid [8][8]theme.RGB) string {
	var lines []string
	for row := 7; row >= 0; row-- {
		var line strings.Builder
		for col := 0; col < 8; col++ {
			if col > 0 {
				line.WriteString(" ")
			}
			line.WriteString(RenderPad(grid[row][col]))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
