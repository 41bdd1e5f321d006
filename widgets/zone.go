package widgets

import (
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

// Mark wraps s in a click zone when a zone manager is set
func Mark(z *zone.Manager, id, s string) string {
	if z == nil {
		return s
	}
	return z.Mark(id, s)
}

// Hit reports whether the mouse message falls inside zone id
func Hit(z *zone.Manager, id string, msg tea.MouseMsg) bool {
	if z == nil {
		return false
	}
	info := z.Get(id)
	return info != nil && info.InBounds(msg)
}
