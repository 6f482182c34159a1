package sequencer

import (
	"time"

	"go-fragseq/debug"
	"go-fragseq/fragment"
	"go-fragseq/render"
)

// Sequencer plays its fragments back to back in list order. At any time only
// the fragment under the play head fires.
type Sequencer struct {
	*player
}

// New creates an empty queue sequencer.
func New(opts Options) (*Sequencer, error) {
	p, err := newPlayer("sequencer", opts, false, sumDurations)
	if err != nil {
		return nil, err
	}
	s := &Sequencer{player: p}
	p.clock.Subscribe(s.exec)
	return s, nil
}

func sumDurations(frags []*fragment.Fragment) time.Duration {
	var total time.Duration
	for _, f := range frags {
		total += f.Duration()
	}
	return total
}

// Push appends f. It fails with errs.ErrDuplicateFragment if f is present.
func (s *Sequencer) Push(f *fragment.Fragment) error { return s.push(f) }

// Insert places f at index, which must lie in [0, Len()].
func (s *Sequencer) Insert(index int, f *fragment.Fragment) error {
	return s.insert(index, f, false)
}

// Remove drops f. It fails with errs.ErrNotFound if f is absent.
func (s *Sequencer) Remove(f *fragment.Fragment) error { return s.remove(f) }

// exec fires the first fragment whose accumulated window [acc, acc+dur)
// contains t. Composites see t relative to their slot.
func (s *Sequencer) exec(t time.Duration) {
	var acc time.Duration
	for _, f := range s.snapshot() {
		d := f.Duration()
		if t < acc+d {
			debug.LogEvery(20, "seq", "queue t=%v fires %q", t, f.Name())
			if f.HasChildren() {
				f.Exec(t - acc)
			} else if cb := f.Callback(); cb != nil {
				cb(t)
			}
			return
		}
		acc += d
	}
}

// Frame describes the current state for a renderer: one row, fragments laid
// end to end.
func (s *Sequencer) Frame(opts render.Options) (render.Frame, error) {
	return render.Queue(s.snapshot(), s.CurrentTime(), s.TotalTime(), opts)
}
