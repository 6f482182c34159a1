package ticker

import (
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"go-fragseq/debug"
	"go-fragseq/errs"
)

// DefaultWorkerLimit bounds concurrently running isolated workers.
const DefaultWorkerLimit = 64

const inboxSize = 8

var (
	limitMu sync.Mutex
	workers = semaphore.NewWeighted(DefaultWorkerLimit)
)

// SetWorkerLimit replaces the isolated worker budget. Workers already running
// keep their slot in the previous budget.
func SetWorkerLimit(n int64) {
	limitMu.Lock()
	workers = semaphore.NewWeighted(n)
	limitMu.Unlock()
}

func workerBudget() *semaphore.Weighted {
	limitMu.Lock()
	defer limitMu.Unlock()
	return workers
}

// Isolated generates ticks on its own goroutine and posts them back into the
// Scheduler. The worker is spawned by Start and torn down by Stop.
type Isolated struct {
	sched Scheduler
	h     Handler

	mu     sync.Mutex
	inbox  chan Message  // nil while no worker runs
	exited chan struct{} // closed when the worker goroutine returns
	seq    uint64
}

func NewIsolated(sched Scheduler, h Handler) *Isolated {
	return &Isolated{sched: sched, h: h}
}

// Start spawns the worker if needed. It fails with errs.ErrWorkerUnavailable
// when the worker budget is exhausted.
func (w *Isolated) Start(cfg Config, delay time.Duration) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inbox != nil && w.exitedLocked() {
		w.inbox, w.exited = nil, nil
	}
	if w.inbox == nil {
		budget := workerBudget()
		if !budget.TryAcquire(1) {
			return errs.WorkerUnavailable(nil, "isolated tick worker budget exhausted")
		}
		w.inbox = make(chan Message, inboxSize)
		w.exited = make(chan struct{})
		go w.run(w.inbox, w.exited, budget)
	}
	w.seq++
	debug.Log("ticker", "isolated start pitch=%v delay=%v seq=%d", cfg.Pitch, delay, w.seq)
	w.sendLocked(Message{Kind: MsgStart, Config: cfg, Delay: delay, Seq: w.seq})
	return nil
}

// Stop terminates the worker. Ticks already posted are discarded.
func (w *Isolated) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inbox == nil {
		return
	}
	w.seq++
	close(w.inbox)
	w.inbox, w.exited = nil, nil
	debug.Log("ticker", "isolated stop")
}

func (w *Isolated) Update(cfg Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inbox == nil {
		return
	}
	w.sendLocked(Message{Kind: MsgUpdate, Config: cfg, Seq: w.seq})
}

func (w *Isolated) sendLocked(msg Message) {
	select {
	case w.inbox <- msg:
	case <-w.exited:
	}
}

func (w *Isolated) exitedLocked() bool {
	select {
	case <-w.exited:
		return true
	default:
		return false
	}
}

// live reports whether seq is still the current run.
func (w *Isolated) live(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inbox != nil && w.seq == seq
}

func (w *Isolated) post(msg Message, err error) {
	w.sched.Post(func() {
		if !w.live(msg.Seq) {
			return
		}
		if err != nil {
			w.h.fail(err)
			return
		}
		w.h.tick()
	})
}

func (w *Isolated) run(inbox <-chan Message, exited chan<- struct{}, budget *semaphore.Weighted) {
	var (
		pitch  time.Duration
		seq    uint64
		delay  *time.Timer
		delayC <-chan time.Time
		tick   *time.Ticker
		tickC  <-chan time.Time
	)
	halt := func() {
		if delay != nil {
			delay.Stop()
			delay, delayC = nil, nil
		}
		if tick != nil {
			tick.Stop()
			tick, tickC = nil, nil
		}
	}
	defer close(exited)
	defer budget.Release(1)
	defer func() {
		halt()
		if r := recover(); r != nil {
			debug.Log("ticker", "isolated worker panicked: %v", r)
			w.post(Message{Kind: MsgTick, Seq: seq}, errs.TickFault("isolated worker panicked: %v", r))
		}
	}()

	for {
		select {
		case msg, ok := <-inbox:
			if !ok {
				return
			}
			switch msg.Kind {
			case MsgStart:
				halt()
				pitch, seq = msg.Config.Pitch, msg.Seq
				delay = time.NewTimer(msg.Delay)
				delayC = delay.C
			case MsgStop:
				halt()
			case MsgUpdate:
				if msg.Config.Pitch > 0 && msg.Config.Pitch != pitch {
					pitch = msg.Config.Pitch
					if tick != nil {
						tick.Reset(pitch)
					}
				}
			}

		case <-delayC:
			delay, delayC = nil, nil
			tick = time.NewTicker(pitch)
			tickC = tick.C

		case <-tickC:
			w.post(Message{Kind: MsgTick, Seq: seq}, nil)
		}
	}
}
