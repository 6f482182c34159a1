// Package ticker produces periodic tick notifications.
//
// A Source emits one tick every pitch after an initial delay. Two backends
// share the same Message contract:
//   - Cooperative schedules ticks on the caller's Scheduler itself
//   - Isolated runs a worker goroutine that owns a time.Ticker and posts
//     tick messages back into the caller's Scheduler
//
// Either way, ticks reach the Handler serialized by the Scheduler, so a
// consumer never sees two ticks at once.
package ticker

import (
	"time"

	"go-fragseq/errs"
)

// Config is the tick configuration a Source runs with. TotalTime and Loop are
// hints; only Pitch changes the cadence.
type Config struct {
	Pitch     time.Duration
	TotalTime time.Duration
	Loop      bool
}

func (c Config) validate() error {
	if c.Pitch <= 0 {
		return errs.InvalidArgument("pitch %v must be > 0", c.Pitch)
	}
	if c.TotalTime < 0 {
		return errs.InvalidArgument("total time %v must be >= 0", c.TotalTime)
	}
	return nil
}

// MessageKind identifies a control or tick message.
type MessageKind int

const (
	MsgStart MessageKind = iota
	MsgStop
	MsgUpdate
	MsgTick
)

func (k MessageKind) String() string {
	switch k {
	case MsgStart:
		return "start"
	case MsgStop:
		return "stop"
	case MsgUpdate:
		return "update"
	case MsgTick:
		return "tick"
	}
	return "unknown"
}

// Message is exchanged between a Source front end and its tick generator.
type Message struct {
	Kind   MessageKind
	Config Config
	Delay  time.Duration
	Seq    uint64 // start generation, stale ticks are dropped
}

// Handler receives ticks and asynchronous failures on the Scheduler.
type Handler struct {
	OnTick  func()
	OnError func(error)
}

func (h Handler) tick() {
	if h.OnTick != nil {
		h.OnTick()
	}
}

func (h Handler) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Source is a tick producer. Start after Stop begins a fresh run.
type Source interface {
	// Start emits a tick every cfg.Pitch, the first one delay+cfg.Pitch from now.
	Start(cfg Config, delay time.Duration) error
	// Stop ceases ticks and releases any owned execution context.
	Stop()
	// Update adjusts the configuration without restarting the run.
	Update(cfg Config)
}

// Backend selects a Source implementation.
type Backend int

const (
	BackendCooperative Backend = iota
	BackendIsolated
)

func (b Backend) String() string {
	if b == BackendIsolated {
		return "isolated"
	}
	return "cooperative"
}

// New builds the Source for backend.
func New(backend Backend, sched Scheduler, h Handler) Source {
	if backend == BackendIsolated {
		return NewIsolated(sched, h)
	}
	return NewCooperative(sched, h)
}
