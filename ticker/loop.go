package ticker

import (
	"sync"
	"sync/atomic"
	"time"

	"go-fragseq/debug"
)

// Timer is a pending AfterFunc.
type Timer interface {
	// Stop prevents the function from running. It reports whether the call
	// stopped the timer.
	Stop() bool
}

// Scheduler is an execution context that runs functions one at a time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Post(f func())
}

// Loop is a real-time Scheduler: one goroutine runs everything posted to it
// in FIFO order.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewLoop starts a run loop. Close it when done.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

var (
	defaultLoop     *Loop
	defaultLoopOnce sync.Once
)

// Default returns the process-wide loop used when no Scheduler is supplied.
func Default() *Loop {
	defaultLoopOnce.Do(func() {
		defaultLoop = NewLoop()
	})
	return defaultLoop
}

// Post queues f. Posting to a closed loop drops f.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs f on the loop and waits for it.
func (l *Loop) Do(f func()) {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		f()
	})
	select {
	case <-ran:
	case <-l.done:
	}
}

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (lt *loopTimer) Stop() bool {
	lt.stopped.Store(true)
	return lt.t.Stop()
}

// AfterFunc posts f to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			// the timer may have been stopped after it fired
			if !lt.stopped.Load() {
				f()
			}
		})
	})
	return lt
}

// Close stops the loop goroutine. Pending work is discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	close(l.quit)
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 || l.closed {
				l.mu.Unlock()
				break
			}
			f := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.runTask(f)
		}
	}
}

func (l *Loop) runTask(f func()) {
	defer func() {
		if r := recover(); r != nil {
			debug.Log("loop", "task panicked: %v", r)
		}
	}()
	f()
}
