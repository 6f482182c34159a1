// Package sequencer turns clock time updates into fragment activations.
//
// Sequencer plays fragments back to back, one at a time. Independent plays
// positioned fragments at their own start points and lets them overlap.
// Both own exactly one clock.Clock and subscribe to it at construction.
package sequencer

import (
	"sync"
	"time"

	"go-fragseq/clock"
	"go-fragseq/debug"
	"go-fragseq/errs"
	"go-fragseq/fragment"
	"go-fragseq/render"
	"go-fragseq/ticker"
)

// Options configures a sequencer's clock.
type Options struct {
	Pitch     time.Duration
	Loop      bool
	Speed     float64
	Backend   ticker.Backend
	Scheduler ticker.Scheduler
}

// DefaultPitch is used when Options.Pitch is zero.
const DefaultPitch = 10 * time.Millisecond

// player holds what both sequencers share: the fragment list and the clock.
type player struct {
	kind  string
	mu    sync.RWMutex
	frags []*fragment.Fragment
	clock *clock.Clock
	total func([]*fragment.Fragment) time.Duration
}

func newPlayer(kind string, opts Options, emitOnStart bool, total func([]*fragment.Fragment) time.Duration) (*player, error) {
	if opts.Pitch == 0 {
		opts.Pitch = DefaultPitch
	}
	c, err := clock.New(clock.Options{
		Pitch:       opts.Pitch,
		Loop:        opts.Loop,
		Speed:       opts.Speed,
		Backend:     opts.Backend,
		Scheduler:   opts.Scheduler,
		EmitOnStart: emitOnStart,
	})
	if err != nil {
		return nil, err
	}
	return &player{kind: kind, clock: c, total: total}, nil
}

// snapshot returns the fragment list as of now. Ticks iterate the copy.
func (p *player) snapshot() []*fragment.Fragment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*fragment.Fragment(nil), p.frags...)
}

func (p *player) indexLocked(f *fragment.Fragment) int {
	for i, g := range p.frags {
		if g.ID() == f.ID() {
			return i
		}
	}
	return -1
}

// insert places f at index, or at the end when appending.
func (p *player) insert(index int, f *fragment.Fragment, appending bool) error {
	if f == nil {
		return errs.InvalidArgument("%s: nil fragment", p.kind)
	}

	p.mu.Lock()
	if appending {
		index = len(p.frags)
	}
	if index < 0 || index > len(p.frags) {
		n := len(p.frags)
		p.mu.Unlock()
		return errs.InvalidArgument("%s: index %d out of range [0, %d]", p.kind, index, n)
	}
	if p.indexLocked(f) >= 0 {
		p.mu.Unlock()
		return errs.DuplicateFragment("%s: fragment %q (%s) already added", p.kind, f.Name(), f.ID())
	}
	p.frags = append(p.frags, nil)
	copy(p.frags[index+1:], p.frags[index:])
	p.frags[index] = f
	p.mu.Unlock()

	debug.Log("seq", "%s add %q at %d", p.kind, f.Name(), index)
	return p.refreshTotal()
}

func (p *player) push(f *fragment.Fragment) error {
	return p.insert(0, f, true)
}

func (p *player) remove(f *fragment.Fragment) error {
	if f == nil {
		return errs.InvalidArgument("%s: nil fragment", p.kind)
	}

	p.mu.Lock()
	i := p.indexLocked(f)
	if i < 0 {
		p.mu.Unlock()
		return errs.NotFound("%s: fragment %q (%s) not in sequencer", p.kind, f.Name(), f.ID())
	}
	p.frags = append(p.frags[:i:i], p.frags[i+1:]...)
	p.mu.Unlock()

	debug.Log("seq", "%s remove %q", p.kind, f.Name())
	return p.refreshTotal()
}

// refreshTotal pushes the derived total time to the clock. Composite
// durations can change behind the sequencer's back, so Play refreshes too.
func (p *player) refreshTotal() error {
	return p.clock.SetTotalTime(p.TotalTime())
}

// Fragments returns the owned fragments in sequencer order.
func (p *player) Fragments() []*fragment.Fragment { return p.snapshot() }

// Len is the number of owned fragments.
func (p *player) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.frags)
}

// TotalTime derives the playback length from the current fragments.
func (p *player) TotalTime() time.Duration { return p.total(p.snapshot()) }

// Play starts the clock after delay.
func (p *player) Play(delay time.Duration) (*clock.Completion, error) {
	if err := p.refreshTotal(); err != nil {
		return nil, err
	}
	return p.clock.Play(delay)
}

// Replay rewinds to 0 and plays.
func (p *player) Replay(delay time.Duration) (*clock.Completion, error) {
	if err := p.refreshTotal(); err != nil {
		return nil, err
	}
	return p.clock.Replay(delay)
}

func (p *player) Stop(delay time.Duration) error { return p.clock.Stop(delay) }
func (p *player) Reset() { p.clock.Reset() }

func (p *player) SetPitch(d time.Duration) error { return p.clock.SetPitch(d) }
func (p *player) SetSpeed(s float64) error { return p.clock.SetSpeed(s) }
func (p *player) SetLoopFlag(loop bool) { p.clock.SetLoopFlag(loop) }

func (p *player) Pitch() time.Duration { return p.clock.Pitch() }
func (p *player) Speed() float64 { return p.clock.Speed() }
func (p *player) IsLooping() bool { return p.clock.Loop() }
func (p *player) IsPlaying() bool { return p.clock.IsPlaying() }
func (p *player) CurrentTime() time.Duration { return p.clock.CurrentTime() }
func (p *player) Clock() *clock.Clock { return p.clock }

// Player is the control surface shared by Sequencer and Independent.
type Player interface {
	Push(f *fragment.Fragment) error
	Remove(f *fragment.Fragment) error
	Fragments() []*fragment.Fragment
	Play(delay time.Duration) (*clock.Completion, error)
	Replay(delay time.Duration) (*clock.Completion, error)
	Stop(delay time.Duration) error
	Reset()
	SetPitch(d time.Duration) error
	SetSpeed(s float64) error
	SetLoopFlag(loop bool)
	Pitch() time.Duration
	Speed() float64
	IsLooping() bool
	IsPlaying() bool
	CurrentTime() time.Duration
	TotalTime() time.Duration
	Clock() *clock.Clock
	Frame(opts render.Options) (render.Frame, error)
}

var (
	_ Player = (*Sequencer)(nil)
	_ Player = (*Independent)(nil)
)
