// Package render describes what a sequencer looks like at one instant.
//
// It never draws. Queue and Lanes turn fragments plus the current time into
// a Frame of rectangles in an abstract Width×Height surface; a host maps
// that onto a terminal, a canvas or anything else.
package render

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"go-fragseq/errs"
	"go-fragseq/fragment"
	"go-fragseq/lanes"
)

const (
	DefaultWidth              = 800
	DefaultHeight             = 200
	DefaultActiveColor        = "#ff4757"
	DefaultInactiveColor      = "#2ed573"
	DefaultTimeIndicatorColor = "#ffa502"

	// queue rows are drawn as a fixed-height strip centered vertically
	queueRowHeight = 30
	// vertical gap left between a lane's edge and its rectangle
	LanePadding = 2
)

// Options are all optional; zero values take the defaults above.
type Options struct {
	Width              float64
	Height             float64
	ActiveColor        string
	InactiveColor      string
	TimeIndicatorColor string
}

type palette struct {
	active, inactive, indicator colorful.Color
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.ActiveColor == "" {
		o.ActiveColor = DefaultActiveColor
	}
	if o.InactiveColor == "" {
		o.InactiveColor = DefaultInactiveColor
	}
	if o.TimeIndicatorColor == "" {
		o.TimeIndicatorColor = DefaultTimeIndicatorColor
	}
	return o
}

func (o Options) palette() (palette, error) {
	var p palette
	var err error
	if p.active, err = parseColor("active", o.ActiveColor); err != nil {
		return p, err
	}
	if p.inactive, err = parseColor("inactive", o.InactiveColor); err != nil {
		return p, err
	}
	if p.indicator, err = parseColor("time indicator", o.TimeIndicatorColor); err != nil {
		return p, err
	}
	return p, nil
}

// Colors returns the parsed active, inactive and time indicator colors,
// defaults applied.
func (o Options) Colors() (active, inactive, indicator colorful.Color, err error) {
	p, err := o.withDefaults().palette()
	return p.active, p.inactive, p.indicator, err
}

func parseColor(role, hex string) (colorful.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, errs.InvalidArgument("%s color %q: %v", role, hex, err)
	}
	return c, nil
}

// Rect is an axis-aligned rectangle in surface units.
type Rect struct {
	X, Y, W, H float64
}

// View is one fragment's on-screen state.
type View struct {
	Fragment *fragment.Fragment
	Name     string
	Rect     Rect
	Band     lanes.Band
	Active   bool
	Color    colorful.Color
	Depth    int
	Children []View
}

// Frame is the full render description for one instant.
type Frame struct {
	Width, Height  float64
	CurrentTime    time.Duration
	TotalTime      time.Duration
	Lanes          int
	Indicator      float64 // x of the time indicator
	IndicatorColor colorful.Color
	Fragments      []View
}

// scale maps a time onto the surface x axis.
type scale struct {
	width float64
	total time.Duration
}

func (s scale) x(t time.Duration) float64 {
	if s.total <= 0 {
		return 0
	}
	return float64(t) / float64(s.total) * s.width
}

func newFrame(o Options, p palette, current, total time.Duration) Frame {
	sc := scale{width: o.Width, total: total}
	return Frame{
		Width:          o.Width,
		Height:         o.Height,
		CurrentTime:    current,
		TotalTime:      total,
		Indicator:      sc.x(current),
		IndicatorColor: p.indicator,
	}
}

func (p palette) color(active bool) colorful.Color {
	if active {
		return p.active
	}
	return p.inactive
}

// Queue lays frags end to end on a single row. The active fragment is the
// one under the play head, matching the queue sequencer.
func Queue(frags []*fragment.Fragment, current, total time.Duration, opts Options) (Frame, error) {
	o := opts.withDefaults()
	p, err := o.palette()
	if err != nil {
		return Frame{}, err
	}
	if current < 0 {
		return Frame{}, errs.InvalidArgument("current time %v must be >= 0", current)
	}

	fr := newFrame(o, p, current, total)
	fr.Lanes = 1
	sc := scale{width: o.Width, total: total}
	y := o.Height/2 - queueRowHeight/2

	var acc time.Duration
	found := false
	for _, f := range frags {
		d := f.Duration()
		active := !found && current >= acc && current < acc+d
		if active {
			found = true
		}
		fr.Fragments = append(fr.Fragments, View{
			Fragment: f,
			Name:     f.Name(),
			Rect:     Rect{X: sc.x(acc), Y: y, W: sc.x(d), H: queueRowHeight},
			Band:     lanes.Band{Index: 0, Size: 1},
			Active:   active,
			Color:    p.color(active),
		})
		acc += d
	}
	return fr, nil
}

// Lanes packs frags into lanes and lays them out at their start points.
// Composites contain their children, packed again inside the composite's
// band.
func Lanes(frags []*fragment.Fragment, current, total time.Duration, opts Options) (Frame, error) {
	o := opts.withDefaults()
	p, err := o.palette()
	if err != nil {
		return Frame{}, err
	}
	if current < 0 {
		return Frame{}, errs.InvalidArgument("current time %v must be >= 0", current)
	}

	fr := newFrame(o, p, current, total)
	packing := lanes.Pack(frags)
	fr.Lanes = packing.Lanes
	l := layout{sc: scale{width: o.Width, total: total}, pal: p}
	fr.Fragments = l.views(packing, 0, current, 0, o.Height, 0)
	return fr, nil
}

type layout struct {
	sc  scale
	pal palette
}

// views lays out one packing level. offset is the absolute start of the
// level's time frame, local the current time in that frame, and
// [top, top+height) the vertical space the level may use.
func (l layout) views(p *lanes.Packing, offset, local time.Duration, top, height float64, depth int) []View {
	laneH := height / float64(max(p.Lanes, 1))
	out := make([]View, 0, len(p.Placements))
	for _, pl := range p.Placements {
		f := pl.Fragment
		start, dur := f.StartPoint(), f.Duration()
		active := local >= start && local < start+dur

		y := top + float64(pl.Band.Index)*laneH
		h := float64(pl.Band.Size) * laneH
		v := View{
			Fragment: f,
			Name:     f.Name(),
			Rect: Rect{
				X: l.sc.x(offset + start),
				Y: y + LanePadding,
				W: l.sc.x(dur),
				H: max(h-2*LanePadding, 0),
			},
			Band:   pl.Band,
			Active: active,
			Color:  l.pal.color(active),
			Depth:  depth,
		}
		if pl.Children != nil {
			v.Children = l.views(pl.Children, offset+start, local-start, y, h, depth+1)
		}
		out = append(out, v)
	}
	return out
}
