package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Toggle
	Ball  rune // ● toggle knob
	Track rune // ─ toggle rail

	// Grid background
	BeatLine rune // │ whole beat
	SubLine  rune // ┊ subdivision
	Empty    rune // · empty cell
	Nub      rune // ┴ header tick

	// Overlays
	MouseCursor rune // ┃ snapped mouse cursor
	Playhead    rune // ▼ song position (header)
	PlayheadCol rune // ║ song position (tracks)

	// Events
	On     rune // ■ light on
	Off    rune // □ light off
	Flash  rune // ◆ flash
	Fade   rune // ◇ fade
	Rotate rune // ↻ ring rotate
	Zoom   rune // ⊙ ring zoom
	Speed  rune // » laser speed
	Ghost  rune // ░ preview of the next placement
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Ball:  '●',
			Track: '─',

			BeatLine: '│',
			SubLine:  '┊',
			Empty:    '·',
			Nub:      '┴',

			MouseCursor: '┃',
			Playhead:    '▼',
			PlayheadCol: '║',

			On:     '■',
			Off:    '□',
			Flash:  '◆',
			Fade:   '◇',
			Rotate: '↻',
			Zoom:   '⊙',
			Speed:  '»',
			Ghost:  '░',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.15
	RoleMuted   = 0.35
	RoleFG      = 0.75
	RoleAccent  = 1.0
)

// Event light colors, independent of the palette
var (
	RedLightRGB  = RGB{0xef, 0x44, 0x44}
	BlueLightRGB = RGB{0x3b, 0x82, 0xf6}

	RedLight  = lipgloss.Color(RedLightRGB.Hex())
	BlueLight = lipgloss.Color(BlueLightRGB.Hex())
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) Surface() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSurface))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// RGB returns raw RGB for any normalized value (for Launchpad)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// Light returns the render color of an event light color name
func (t *Theme) Light(color string) lipgloss.Color {
	if color == "blue" {
		return BlueLight
	}
	return RedLight
}

// LightRGB is Light as raw RGB (for Launchpad)
func (t *Theme) LightRGB(color string) RGB {
	if color == "blue" {
		return BlueLightRGB
	}
	return RedLightRGB
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(c.Hex())
}
