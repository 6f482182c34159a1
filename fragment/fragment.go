// Package fragment models named, timed units of work.
//
// A Fragment is one of three kinds: a leaf (name, duration, callback), a
// positioned fragment (adds an absolute start point) or a composite, whose
// duration and callback are derived from its positioned/composite children.
package fragment

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"go-fragseq/errs"
)

// Kind tags the variant of a Fragment.
type Kind int

const (
	Leaf Kind = iota
	Positioned
	Composite
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Positioned:
		return "positioned"
	case Composite:
		return "composite"
	}
	return "unknown"
}

// Callback receives the time in the frame of whoever fires the fragment:
// sequencer time for top-level fragments, composite-local time for children.
type Callback func(now time.Duration)

// Fragment is a named, timed unit of work. The zero value is not usable; use
// New, NewPositioned or NewComposite.
type Fragment struct {
	id   uuid.UUID
	kind Kind

	mu       sync.RWMutex
	name     string
	duration time.Duration // unused for composites
	start    time.Duration
	callback Callback // unused for composites
	children []*Fragment
}

// New creates a leaf fragment.
func New(name string, duration time.Duration, cb Callback) (*Fragment, error) {
	if duration < 0 {
		return nil, errs.InvalidArgument("fragment %q: duration %v must be >= 0", name, duration)
	}
	return &Fragment{
		id:       uuid.New(),
		kind:     Leaf,
		name:     name,
		duration: duration,
		callback: cb,
	}, nil
}

// NewPositioned creates a fragment active on [start, start+duration).
func NewPositioned(name string, duration, start time.Duration, cb Callback) (*Fragment, error) {
	if duration < 0 {
		return nil, errs.InvalidArgument("fragment %q: duration %v must be >= 0", name, duration)
	}
	if start < 0 {
		return nil, errs.InvalidArgument("fragment %q: start point %v must be >= 0", name, start)
	}
	return &Fragment{
		id:       uuid.New(),
		kind:     Positioned,
		name:     name,
		duration: duration,
		start:    start,
		callback: cb,
	}, nil
}

// NewComposite creates an empty composite starting at start.
func NewComposite(name string, start time.Duration) (*Fragment, error) {
	if start < 0 {
		return nil, errs.InvalidArgument("composite %q: start point %v must be >= 0", name, start)
	}
	return &Fragment{
		id:    uuid.New(),
		kind:  Composite,
		name:  name,
		start: start,
	}, nil
}

// ID returns the identity assigned at creation.
func (f *Fragment) ID() uuid.UUID { return f.id }

func (f *Fragment) Kind() Kind { return f.kind }

// HasChildren reports whether f is a composite.
func (f *Fragment) HasChildren() bool { return f.kind == Composite }

// IsPositioned reports whether f carries a start point (positioned or composite).
func (f *Fragment) IsPositioned() bool { return f.kind != Leaf }

func (f *Fragment) Name() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.name
}

func (f *Fragment) SetName(name string) {
	f.mu.Lock()
	f.name = name
	f.mu.Unlock()
}

// StartPoint is always 0 for leaves.
func (f *Fragment) StartPoint() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.start
}

func (f *Fragment) SetStartPoint(start time.Duration) error {
	if f.kind == Leaf {
		return errs.Unsupported("fragment %q: leaves have no start point", f.Name())
	}
	if start < 0 {
		return errs.InvalidArgument("fragment %q: start point %v must be >= 0", f.Name(), start)
	}
	f.mu.Lock()
	f.start = start
	f.mu.Unlock()
	return nil
}

// Duration is stored for leaves and positioned fragments and computed for
// composites as the furthest child end point.
func (f *Fragment) Duration() time.Duration {
	if f.kind != Composite {
		f.mu.RLock()
		defer f.mu.RUnlock()
		return f.duration
	}
	var d time.Duration
	for _, c := range f.Children() {
		if end := c.End(); end > d {
			d = end
		}
	}
	return d
}

func (f *Fragment) SetDuration(d time.Duration) error {
	if f.kind == Composite {
		return errs.Unsupported("composite %q: duration is derived from children", f.Name())
	}
	if d < 0 {
		return errs.InvalidArgument("fragment %q: duration %v must be >= 0", f.Name(), d)
	}
	f.mu.Lock()
	f.duration = d
	f.mu.Unlock()
	return nil
}

// End is StartPoint()+Duration().
func (f *Fragment) End() time.Duration {
	return f.StartPoint() + f.Duration()
}

// Contains reports whether t falls in the half-open window [start, start+duration).
func (f *Fragment) Contains(t time.Duration) bool {
	start := f.StartPoint()
	return t >= start && t < start+f.Duration()
}

// Callback returns the stored callback, or for composites a closure that
// fires the children active at a composite-local time.
func (f *Fragment) Callback() Callback {
	if f.kind == Composite {
		return f.Exec
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.callback
}

func (f *Fragment) SetCallback(cb Callback) error {
	if f.kind == Composite {
		return errs.Unsupported("composite %q: callback is derived from children", f.Name())
	}
	f.mu.Lock()
	f.callback = cb
	f.mu.Unlock()
	return nil
}

// Copy returns a fragment with a fresh identity and the same attributes.
// A copied composite shares its children with the original.
func (f *Fragment) Copy() *Fragment {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := &Fragment{
		id:       uuid.New(),
		kind:     f.kind,
		name:     f.name,
		duration: f.duration,
		start:    f.start,
		callback: f.callback,
	}
	if f.children != nil {
		c.children = append([]*Fragment(nil), f.children...)
	}
	return c
}
