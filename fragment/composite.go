package fragment

import (
	"time"

	"github.com/google/uuid"

	"go-fragseq/errs"
)

// Children returns a snapshot of a composite's children in insertion order.
func (f *Fragment) Children() []*Fragment {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.children) == 0 {
		return nil
	}
	return append([]*Fragment(nil), f.children...)
}

// AddChild appends a positioned or composite child. Child start points are
// relative to the composite's own start.
func (f *Fragment) AddChild(child *Fragment) error {
	if f.kind != Composite {
		return errs.Unsupported("fragment %q: only composites have children", f.Name())
	}
	if child == nil {
		return errs.InvalidArgument("composite %q: nil child", f.Name())
	}
	if !child.IsPositioned() {
		return errs.InvalidArgument("composite %q: child %q has no start point", f.Name(), child.Name())
	}
	if child == f || child.reaches(f.id) {
		return errs.InvalidArgument("composite %q: adding %q would create a cycle", f.Name(), child.Name())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.children {
		if c.id == child.id {
			return errs.DuplicateFragment("composite %q: child %s already present", f.name, child.id)
		}
	}
	f.children = append(f.children, child)
	return nil
}

func (f *Fragment) RemoveChild(child *Fragment) error {
	if f.kind != Composite {
		return errs.Unsupported("fragment %q: only composites have children", f.Name())
	}
	if child == nil {
		return errs.InvalidArgument("composite %q: nil child", f.Name())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.children {
		if c.id == child.id {
			f.children = append(f.children[:i], f.children[i+1:]...)
			return nil
		}
	}
	return errs.NotFound("composite %q: child %s", f.name, child.id)
}

// reaches reports whether id is f or any fragment nested below f.
func (f *Fragment) reaches(id uuid.UUID) bool {
	if f.id == id {
		return true
	}
	for _, c := range f.Children() {
		if c.reaches(id) {
			return true
		}
	}
	return false
}

// Exec fires every child whose window contains local, a time measured from
// the composite's start. Nested composites are entered in their own frame.
func (f *Fragment) Exec(local time.Duration) {
	for _, c := range f.Children() {
		if c.Contains(local) {
			Fire(c, local)
		}
	}
}

// Fire invokes f at time t expressed in its parent's frame.
func Fire(f *Fragment, t time.Duration) {
	if f.HasChildren() {
		f.Exec(t - f.StartPoint())
		return
	}
	if cb := f.Callback(); cb != nil {
		cb(t)
	}
}
