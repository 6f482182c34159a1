package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Timeline cells
	Active    rune // █ fragment active at the play head
	Inactive  rune // ▒ fragment outside its window
	Child     rune // ░ nested fragment
	Empty     rune // · no fragment
	Indicator rune // │ current time

	// Transport
	Playing rune // ▶
	Stopped rune // ■
	Looping rune // ↻
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Active:    '█',
			Inactive:  '▒',
			Child:     '░',
			Empty:     '·',
			Indicator: '│',

			Playing: '▶',
			Stopped: '■',
			Looping: '↻',
		},
	}
}

// Load returns the theme for a .gpl palette path, or the default palette
// when path is empty.
func Load(path string) (*Theme, error) {
	if path == "" {
		return New(nil), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.1
	RoleMuted   = 0.3
	RoleFG      = 0.9
	RoleAccent  = 0.5
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color { return t.Color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.Color(RoleSurface) }
func (t *Theme) FG() lipgloss.Color { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color { return t.Color(RoleActive) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return Lipgloss(t.Palette.Lookup(norm).Colorful())
}

// Fade mixes c toward the background, amount 0-1. Nested fragments are drawn
// faded by depth.
func (t *Theme) Fade(c colorful.Color, amount float64) lipgloss.Color {
	bg := t.Palette.Lookup(RoleBG).Colorful()
	return Lipgloss(c.BlendLab(bg, amount))
}

// Lipgloss converts a colorful color for styling.
func Lipgloss(c colorful.Color) lipgloss.Color {
	return lipgloss.Color(c.Clamped().Hex())
}
