package sequencer

import (
	"errors"
	"testing"
	"time"

	"go-fragseq/errs"
	"go-fragseq/fragment"
	"go-fragseq/ticker"
)

const ms = time.Millisecond

type counter struct {
	calls int
	times []time.Duration
}

func (c *counter) cb(now time.Duration) {
	c.calls++
	c.times = append(c.times, now)
}

func leaf(t *testing.T, name string, dur time.Duration, cb fragment.Callback) *fragment.Fragment {
	t.Helper()
	f, err := fragment.New(name, dur, cb)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func positioned(t *testing.T, name string, dur, start time.Duration, cb fragment.Callback) *fragment.Fragment {
	t.Helper()
	f, err := fragment.NewPositioned(name, dur, start, cb)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func newQueue(t *testing.T, opts Options) (*Sequencer, *ticker.Virtual) {
	t.Helper()
	v := ticker.NewVirtual()
	opts.Scheduler = v
	s, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return s, v
}

func newIndependent(t *testing.T, opts Options) (*Independent, *ticker.Virtual) {
	t.Helper()
	v := ticker.NewVirtual()
	opts.Scheduler = v
	s, err := NewIndependent(opts)
	if err != nil {
		t.Fatal(err)
	}
	return s, v
}

func TestQueueBoundary(t *testing.T) {
	s, v := newQueue(t, Options{Pitch: 100 * ms})
	var c counter
	for _, f := range []*fragment.Fragment{
		leaf(t, "T1", 100*ms, c.cb),
		leaf(t, "T2", 50*ms, c.cb),
	} {
		if err := s.Push(f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		advance time.Duration
		want    int
	}{
		{99 * ms, 0},
		{1 * ms, 1},
		{50 * ms, 1},
	}
	for _, st := range steps {
		v.Advance(st.advance)
		if c.calls != st.want {
			t.Fatalf("at %v: calls = %d, want %d", v.Now(), c.calls, st.want)
		}
	}
	if c.times[0] != 100*ms {
		t.Errorf("fired at %v, want 100ms", c.times[0])
	}
	v.Advance(50 * ms)
	if c.calls != 1 {
		t.Errorf("end tick fired a callback: %v", c.times)
	}
	if s.IsPlaying() {
		t.Error("sequencer still playing past its total time")
	}
}

func TestQueueFiresOnlyFragmentUnderPlayHead(t *testing.T) {
	s, v := newQueue(t, Options{Pitch: 50 * ms})
	var a, b, c counter
	for _, f := range []*fragment.Fragment{
		leaf(t, "a", 100*ms, a.cb),
		leaf(t, "b", 100*ms, b.cb),
		leaf(t, "c", 100*ms, c.cb),
	} {
		if err := s.Push(f); err != nil {
			t.Fatal(err)
		}
	}
	if s.TotalTime() != 300*ms {
		t.Fatalf("TotalTime = %v", s.TotalTime())
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(300 * ms)

	// updates at 50..250, the tick at 300 ends playback
	if a.calls != 1 || b.calls != 2 || c.calls != 2 {
		t.Errorf("calls a=%d b=%d c=%d, want 1 2 2", a.calls, b.calls, c.calls)
	}
}

func TestQueueLoopPeriodicity(t *testing.T) {
	s, v := newQueue(t, Options{Pitch: 50 * ms, Loop: true})
	var a, b counter
	for _, f := range []*fragment.Fragment{
		leaf(t, "a", 100*ms, a.cb),
		leaf(t, "b", 100*ms, b.cb),
	} {
		if err := s.Push(f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}

	// updates at 50 100 150 and 0 after the wrap
	var deltas [][2]int
	for cycle := 0; cycle < 3; cycle++ {
		beforeA, beforeB := a.calls, b.calls
		v.Advance(200 * ms)
		deltas = append(deltas, [2]int{a.calls - beforeA, b.calls - beforeB})
		if !s.IsPlaying() {
			t.Fatalf("cycle %d ended a looping queue", cycle)
		}
	}
	for i := 1; i < len(deltas); i++ {
		if deltas[i] != deltas[0] {
			t.Errorf("cycle deltas differ: %v", deltas)
		}
	}
	if deltas[0] != [2]int{2, 2} {
		t.Errorf("per-cycle calls = %v, want [2 2]", deltas[0])
	}
	if a.times[1] != 0 {
		t.Errorf("a fired at %v after the wrap, want 0", a.times[1])
	}

	v.Advance(50 * ms)
	if err := s.Stop(0); err != nil {
		t.Fatal(err)
	}
	calls := a.calls + b.calls
	v.Advance(time.Second)
	if a.calls+b.calls != calls {
		t.Errorf("calls after stop: %d, want %d", a.calls+b.calls, calls)
	}
}

func TestQueueCompositeFiresInSlotTime(t *testing.T) {
	s, v := newQueue(t, Options{Pitch: 50 * ms})
	var inner counter
	comp, err := fragment.NewComposite("comp", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := comp.AddChild(positioned(t, "inner", 100*ms, 50*ms, inner.cb)); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(leaf(t, "lead", 100*ms, nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(comp); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(200 * ms)

	// comp occupies [100, 250); inner is [50, 150) in comp time
	want := []time.Duration{50 * ms, 100 * ms}
	if len(inner.times) != len(want) {
		t.Fatalf("inner fired at %v, want %v", inner.times, want)
	}
	for i := range want {
		if inner.times[i] != want[i] {
			t.Errorf("inner fired at %v, want %v", inner.times, want)
		}
	}
}

func TestQueueMutation(t *testing.T) {
	s, _ := newQueue(t, Options{})
	a := leaf(t, "a", 100*ms, nil)
	b := leaf(t, "b", 200*ms, nil)
	c := leaf(t, "c", 300*ms, nil)

	if err := s.Push(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(a); !errors.Is(err, errs.ErrDuplicateFragment) {
		t.Errorf("duplicate Push: %v", err)
	}
	if err := s.Push(c); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(1, b); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(4, leaf(t, "d", 0, nil)); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("Insert past end: %v", err)
	}
	if err := s.Insert(-1, leaf(t, "e", 0, nil)); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("Insert at -1: %v", err)
	}
	if err := s.Insert(0, c); !errors.Is(err, errs.ErrDuplicateFragment) {
		t.Errorf("duplicate Insert: %v", err)
	}

	got := s.Fragments()
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
		t.Fatalf("order = %v", names(got))
	}
	if s.TotalTime() != 600*ms || s.Clock().TotalTime() != 600*ms {
		t.Errorf("TotalTime = %v, clock %v", s.TotalTime(), s.Clock().TotalTime())
	}

	if err := s.Remove(b); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(b); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second Remove: %v", err)
	}
	if s.Clock().TotalTime() != 400*ms {
		t.Errorf("clock total after Remove = %v", s.Clock().TotalTime())
	}
}

func TestQueueCopyIsDistinct(t *testing.T) {
	s, _ := newQueue(t, Options{})
	a := leaf(t, "a", 100*ms, nil)
	if err := s.Push(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(a.Copy()); err != nil {
		t.Errorf("Push of a copy: %v", err)
	}
}

func TestIndependentOverlap(t *testing.T) {
	s, v := newIndependent(t, Options{Pitch: 100 * ms})
	var f1, f2 counter
	if err := s.Push(positioned(t, "F1", 500*ms, 0, f1.cb)); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(positioned(t, "F2", 500*ms, 250*ms, f2.cb)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(600 * ms)

	if f1.calls != 5 {
		t.Errorf("F1 calls = %d (%v), want 5", f1.calls, f1.times)
	}
	if f2.calls != 4 {
		t.Errorf("F2 calls = %d (%v), want 4", f2.calls, f2.times)
	}
}

func TestIndependentTotalTime(t *testing.T) {
	s, _ := newIndependent(t, Options{})
	if err := s.Push(positioned(t, "a", time.Second, 0, nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(positioned(t, "b", 500*ms, 1500*ms, nil)); err != nil {
		t.Fatal(err)
	}
	if s.TotalTime() != 2*time.Second {
		t.Errorf("TotalTime = %v, want 2s", s.TotalTime())
	}
}

func TestIndependentSameStart(t *testing.T) {
	s, v := newIndependent(t, Options{Pitch: 100 * ms})
	var order []string
	for _, name := range []string{"x", "y", "z"} {
		name := name
		f := positioned(t, name, time.Second, 0, func(time.Duration) { order = append(order, name) })
		if err := s.Push(f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(0)

	if len(order) != 3 || order[0] != "x" || order[1] != "y" || order[2] != "z" {
		t.Errorf("order = %v, want insertion order", order)
	}
}

func TestIndependentRejectsLeafAndInsert(t *testing.T) {
	s, _ := newIndependent(t, Options{})
	if err := s.Push(leaf(t, "leaf", 100*ms, nil)); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("Push leaf: %v", err)
	}
	if err := s.Insert(0, positioned(t, "p", 100*ms, 0, nil)); !errors.Is(err, errs.ErrUnsupportedOperation) {
		t.Errorf("Insert: %v", err)
	}
	if err := s.Remove(positioned(t, "absent", 100*ms, 0, nil)); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Remove absent: %v", err)
	}
}

func TestIndependentZeroDurationNeverFires(t *testing.T) {
	s, v := newIndependent(t, Options{Pitch: 100 * ms, Loop: true})
	var zero, long counter
	if err := s.Push(positioned(t, "zero", 0, 100*ms, zero.cb)); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(positioned(t, "long", 500*ms, 0, long.cb)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(time.Second)
	if zero.calls != 0 {
		t.Errorf("zero-duration fragment fired %d times", zero.calls)
	}
	if long.calls == 0 {
		t.Error("long fragment never fired")
	}
}

func TestIndependentLoopPeriodicity(t *testing.T) {
	s, v := newIndependent(t, Options{Pitch: 50 * ms, Loop: true})
	var a, b counter
	if err := s.Push(positioned(t, "a", 100*ms, 0, a.cb)); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(positioned(t, "b", 50*ms, 150*ms, b.cb)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(0)

	var deltas [][2]int
	for cycle := 0; cycle < 3; cycle++ {
		beforeA, beforeB := a.calls, b.calls
		v.Advance(200 * ms)
		deltas = append(deltas, [2]int{a.calls - beforeA, b.calls - beforeB})
	}
	for i := 1; i < len(deltas); i++ {
		if deltas[i] != deltas[0] {
			t.Errorf("cycle deltas differ: %v", deltas)
		}
	}
	if deltas[0] != [2]int{2, 1} {
		t.Errorf("per-cycle calls = %v, want [2 1]", deltas[0])
	}
}

func TestIndependentNestedComposite(t *testing.T) {
	s, v := newIndependent(t, Options{Pitch: 10 * ms})
	var deep counter
	outer, _ := fragment.NewComposite("outer", 100*ms)
	inner, _ := fragment.NewComposite("inner", 200*ms)
	if err := inner.AddChild(positioned(t, "deep", 50*ms, 20*ms, deep.cb)); err != nil {
		t.Fatal(err)
	}
	if err := outer.AddChild(inner); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(outer); err != nil {
		t.Fatal(err)
	}
	if s.TotalTime() != 370*ms {
		t.Fatalf("TotalTime = %v, want 370ms", s.TotalTime())
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(330 * ms)

	// deep is active over [320, 370) in sequencer time, [20, 70) in its own frame
	if len(deep.times) != 2 || deep.times[0] != 20*ms || deep.times[1] != 30*ms {
		t.Errorf("deep fired at %v, want [20ms 30ms]", deep.times)
	}
}

func TestStopTwice(t *testing.T) {
	s, v := newIndependent(t, Options{Pitch: 100 * ms})
	if err := s.Push(positioned(t, "a", time.Second, 0, nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(100 * ms)
	if err := s.Stop(0); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(0); !errors.Is(err, errs.ErrNotPlaying) {
		t.Errorf("second Stop: %v", err)
	}
}

func TestMutationWhilePlaying(t *testing.T) {
	s, v := newIndependent(t, Options{Pitch: 100 * ms})
	var late counter
	if err := s.Push(positioned(t, "a", 300*ms, 0, nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Play(0); err != nil {
		t.Fatal(err)
	}
	v.Advance(100 * ms)
	if err := s.Push(positioned(t, "late", 300*ms, 400*ms, late.cb)); err != nil {
		t.Fatal(err)
	}
	v.Advance(500 * ms)

	// total grew to 700ms, so playback reaches late's window
	if late.calls != 3 {
		t.Errorf("late calls = %d (%v), want 3", late.calls, late.times)
	}
}

func names(frags []*fragment.Fragment) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = f.Name()
	}
	return out
}
