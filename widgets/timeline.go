package widgets

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"go-fragseq/render"
	"go-fragseq/theme"
)

// Timeline rasterizes a render.Frame into terminal cells.
type Timeline struct {
	Cols         int // cells across
	LinesPerLane int
	Theme        *theme.Theme

	grid  [][]cell
	frame render.Frame
}

type cell struct {
	text  string // "" for the right half of a wide rune
	fg    lipgloss.Color
	bg    lipgloss.Color
	hasBG bool
	view  *render.View
}

func NewTimeline(th *theme.Theme, cols int) *Timeline {
	return &Timeline{Cols: cols, LinesPerLane: 1, Theme: th}
}

// Rows is the height the last frame rasterized to.
func (t *Timeline) Rows() int { return len(t.grid) }

// SetFrame rasterizes fr. Views are drawn parent first so children land on
// top of their composite's band.
func (t *Timeline) SetFrame(fr render.Frame) {
	t.frame = fr
	cols := max(t.Cols, 1)
	rows := max(fr.Lanes, 1) * max(t.LinesPerLane, 1)

	t.grid = make([][]cell, rows)
	for y := range t.grid {
		t.grid[y] = make([]cell, cols)
		for x := range t.grid[y] {
			t.grid[y][x] = cell{text: string(t.Theme.Symbols.Empty), fg: t.Theme.Muted()}
		}
	}

	for i := range fr.Fragments {
		t.draw(&fr.Fragments[i])
	}
	t.drawIndicator()
}

// span maps [a, a+w) in surface units onto [0, n) cells, at least one cell wide.
func span(a, w, total float64, n int) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	const eps = 1e-9
	lo := int(math.Floor(a/total*float64(n) + eps))
	hi := int(math.Ceil((a+w)/total*float64(n) - eps))
	lo = min(max(lo, 0), n-1)
	hi = min(max(hi, lo+1), n)
	return lo, hi
}

func (t *Timeline) draw(v *render.View) {
	cols, rows := len(t.grid[0]), len(t.grid)
	x0, x1 := span(v.Rect.X, v.Rect.W, t.frame.Width, cols)
	// lane padding is not visible at cell resolution
	pad := float64(render.LanePadding)
	y0, y1 := span(v.Rect.Y-pad, v.Rect.H+2*pad, t.frame.Height, rows)

	sym := t.Theme.Symbols.Inactive
	if v.Depth > 0 {
		sym = t.Theme.Symbols.Child
	}
	if v.Active {
		sym = t.Theme.Symbols.Active
	}
	fg := t.Theme.Fade(v.Color, 0.25*float64(v.Depth))

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			t.grid[y][x] = cell{text: string(sym), fg: fg, view: v}
		}
	}
	t.label(v, x0, x1, y0)

	for i := range v.Children {
		t.draw(&v.Children[i])
	}
}

// label writes the fragment name over its first row, truncated to fit.
func (t *Timeline) label(v *render.View, x0, x1, y int) {
	width := x1 - x0
	if width < 2 || v.Name == "" {
		return
	}
	name := runewidth.Truncate(v.Name, width, "…")
	x := x0
	for _, r := range name {
		w := runewidth.RuneWidth(r)
		if x+w > x1 {
			break
		}
		t.grid[y][x] = cell{text: string(r), fg: t.Theme.BG(), bg: t.Theme.Fade(v.Color, 0.25*float64(v.Depth)), hasBG: true, view: v}
		for k := 1; k < w; k++ {
			t.grid[y][x+k] = cell{view: v}
		}
		x += w
	}
}

func (t *Timeline) drawIndicator() {
	cols := len(t.grid[0])
	if t.frame.TotalTime <= 0 {
		return
	}
	x, _ := span(t.frame.Indicator, 0, t.frame.Width, cols)
	color := theme.Lipgloss(t.frame.IndicatorColor)
	for y := range t.grid {
		c := &t.grid[y][x]
		if c.view == nil {
			*c = cell{text: string(t.Theme.Symbols.Indicator), fg: color}
			continue
		}
		if c.text == "" {
			continue
		}
		c.bg, c.hasBG = color, true
	}
}

// View renders the rasterized frame.
func (t *Timeline) View() string {
	lines := make([]string, len(t.grid))
	for y, row := range t.grid {
		var line strings.Builder
		for _, c := range row {
			if c.text == "" {
				continue
			}
			style := lipgloss.NewStyle().Foreground(c.fg)
			if c.hasBG {
				style = style.Background(c.bg)
			}
			line.WriteString(style.Render(c.text))
		}
		lines[y] = line.String()
	}
	return strings.Join(lines, "\n")
}

// HitTest returns the innermost fragment view under cell (x, y).
func (t *Timeline) HitTest(x, y int) (*render.View, bool) {
	if y < 0 || y >= len(t.grid) || x < 0 || x >= len(t.grid[y]) {
		return nil, false
	}
	v := t.grid[y][x].view
	return v, v != nil
}
