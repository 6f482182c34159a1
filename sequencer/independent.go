package sequencer

import (
	"time"

	"go-fragseq/debug"
	"go-fragseq/errs"
	"go-fragseq/fragment"
	"go-fragseq/render"
)

// Independent plays positioned and composite fragments at their own start
// points. Any number of them may be active at once; they fire in the order
// they were pushed.
type Independent struct {
	*player
}

// NewIndependent creates an empty independent sequencer. Its clock emits an
// update at the current time when ticking begins, so fragments starting at 0
// fire immediately.
func NewIndependent(opts Options) (*Independent, error) {
	p, err := newPlayer("independent", opts, true, maxEnd)
	if err != nil {
		return nil, err
	}
	s := &Independent{player: p}
	p.clock.Subscribe(s.exec)
	return s, nil
}

func maxEnd(frags []*fragment.Fragment) time.Duration {
	var total time.Duration
	for _, f := range frags {
		if end := f.End(); end > total {
			total = end
		}
	}
	return total
}

// Push adds a positioned or composite fragment.
func (s *Independent) Push(f *fragment.Fragment) error {
	if f != nil && !f.IsPositioned() {
		return errs.InvalidArgument("independent: fragment %q has no start point", f.Name())
	}
	return s.push(f)
}

// Insert always fails: order carries no meaning here.
func (s *Independent) Insert(index int, f *fragment.Fragment) error {
	return errs.Unsupported("independent: insert at %d, fragments are ordered by start point", index)
}

func (s *Independent) Remove(f *fragment.Fragment) error { return s.remove(f) }

func (s *Independent) exec(t time.Duration) {
	frags := s.snapshot()
	if s.IsLooping() {
		if total := maxEnd(frags); total > 0 {
			t %= total
		}
	}
	fired := 0
	for _, f := range frags {
		if f.Contains(t) {
			fragment.Fire(f, t)
			fired++
		}
	}
	debug.LogEvery(20, "seq", "independent t=%v fired %d", t, fired)
}

// Frame describes the current state for a renderer: fragments packed into
// lanes, composites nesting their children inside their band.
func (s *Independent) Frame(opts render.Options) (render.Frame, error) {
	return render.Lanes(s.snapshot(), s.CurrentTime(), s.TotalTime(), opts)
}
