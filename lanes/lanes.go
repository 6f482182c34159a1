// Package lanes assigns display rows to possibly overlapping fragments.
//
// Pack is a greedy interval partitioning: fragments are seated in start
// order into the leftmost lane that is free at their start. A composite
// needs as many lanes as its own children pack into, and takes them as one
// contiguous band so its content can be drawn inside it.
package lanes

import (
	"sort"
	"time"

	"go-fragseq/fragment"
)

// Band is a contiguous run of lanes [Index, Index+Size).
type Band struct {
	Index int
	Size  int
}

// End is one past the last lane of the band.
func (b Band) End() int { return b.Index + b.Size }

// Placement is where one fragment was seated. Children is set for composites
// and is relative to the composite's band.
type Placement struct {
	Fragment *fragment.Fragment
	Band     Band
	Children *Packing
}

// Packing is the result of packing one nesting level.
type Packing struct {
	Lanes      int
	Placements []Placement // in seating order
}

// Pack seats frags into lanes. Leaf fragments are treated as starting at 0.
func Pack(frags []*fragment.Fragment) *Packing {
	type item struct {
		f          *fragment.Fragment
		start, end time.Duration
		dur        time.Duration
	}
	items := make([]item, 0, len(frags))
	for _, f := range frags {
		if f == nil {
			continue
		}
		start, dur := f.StartPoint(), f.Duration()
		items = append(items, item{f: f, start: start, end: start + dur, dur: dur})
	}
	// longer first on equal start
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].start != items[j].start {
			return items[i].start < items[j].start
		}
		return items[i].dur > items[j].dur
	})

	p := &Packing{Placements: make([]Placement, 0, len(items))}
	var filled []time.Duration // per lane, end of the latest occupant

	for _, it := range items {
		if !it.f.HasChildren() {
			lane := -1
			for i, upTo := range filled {
				if upTo <= it.start {
					lane = i
					break
				}
			}
			if lane < 0 {
				lane = len(filled)
				filled = append(filled, 0)
			}
			filled[lane] = it.end
			p.Placements = append(p.Placements, Placement{Fragment: it.f, Band: Band{Index: lane, Size: 1}})
			continue
		}

		children := Pack(it.f.Children())
		k := children.Lanes
		if k < 1 {
			k = 1
		}
		index := firstFreeRun(filled, k, it.start)
		if index < 0 {
			index = len(filled)
			for i := 0; i < k; i++ {
				filled = append(filled, 0)
			}
		}
		for i := index; i < index+k; i++ {
			filled[i] = it.end
		}
		p.Placements = append(p.Placements, Placement{
			Fragment: it.f,
			Band:     Band{Index: index, Size: k},
			Children: children,
		})
	}
	p.Lanes = len(filled)
	return p
}

// firstFreeRun finds the first k consecutive lanes all free at start.
func firstFreeRun(filled []time.Duration, k int, start time.Duration) int {
	run := 0
	for i, upTo := range filled {
		if upTo <= start {
			run++
			if run == k {
				return i - k + 1
			}
		} else {
			run = 0
		}
	}
	return -1
}

// Find returns the placement of f at this level.
func (p *Packing) Find(f *fragment.Fragment) (Placement, bool) {
	for _, pl := range p.Placements {
		if pl.Fragment.ID() == f.ID() {
			return pl, true
		}
	}
	return Placement{}, false
}
