package ticker

import (
	"container/heap"
	"sync"
	"time"
)

// Virtual is a Scheduler on manual time. Nothing runs until Advance, which
// fires due timers in (time, scheduling order) on the caller's goroutine.
type Virtual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers timerQueue
}

func NewVirtual() *Virtual {
	return &Virtual{}
}

// Now returns the virtual time elapsed since creation.
func (v *Virtual) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Pending returns the number of timers not yet fired.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.timers)
}

func (v *Virtual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	t := &virtualTimer{v: v, at: v.now + d, seq: v.seq, f: f}
	heap.Push(&v.timers, t)
	return t
}

// Post schedules f at the current virtual time.
func (v *Virtual) Post(f func()) {
	v.AfterFunc(0, f)
}

// Advance moves time forward by d, running every timer due on the way,
// including timers scheduled by the timers it runs.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now + d
	v.mu.Unlock()

	for {
		v.mu.Lock()
		if len(v.timers) == 0 || v.timers[0].at > target {
			v.now = target
			v.mu.Unlock()
			return
		}
		t := heap.Pop(&v.timers).(*virtualTimer)
		v.now = t.at
		v.mu.Unlock()

		t.f()
	}
}

type virtualTimer struct {
	v     *Virtual
	at    time.Duration
	seq   uint64
	f     func()
	index int
}

func (t *virtualTimer) Stop() bool {
	t.v.mu.Lock()
	defer t.v.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.v.timers, t.index)
	return true
}

type timerQueue []*virtualTimer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
