package ticker

import (
	"sync"
	"time"

	"go-fragseq/debug"
)

// Cooperative ticks on the Scheduler it was given: each tick re-arms an
// AfterFunc one pitch later. Coarse, but it never leaves the caller's context.
type Cooperative struct {
	sched Scheduler
	h     Handler

	mu      sync.Mutex
	cfg     Config
	timer   Timer
	seq     uint64
	running bool
}

func NewCooperative(sched Scheduler, h Handler) *Cooperative {
	return &Cooperative{sched: sched, h: h}
}

func (c *Cooperative) Start(cfg Config, delay time.Duration) error {
	return c.handle(Message{Kind: MsgStart, Config: cfg, Delay: delay})
}

func (c *Cooperative) Stop() {
	c.handle(Message{Kind: MsgStop})
}

func (c *Cooperative) Update(cfg Config) {
	c.handle(Message{Kind: MsgUpdate, Config: cfg})
}

func (c *Cooperative) handle(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Kind {
	case MsgStart:
		if err := msg.Config.validate(); err != nil {
			return err
		}
		c.cancelLocked()
		c.cfg = msg.Config
		c.running = true
		debug.Log("ticker", "cooperative start pitch=%v delay=%v", c.cfg.Pitch, msg.Delay)
		c.armLocked(msg.Delay + c.cfg.Pitch)

	case MsgStop:
		if c.running {
			debug.Log("ticker", "cooperative stop")
		}
		c.cancelLocked()
		c.running = false

	case MsgUpdate:
		pitchChanged := msg.Config.Pitch > 0 && msg.Config.Pitch != c.cfg.Pitch
		if msg.Config.Pitch > 0 {
			c.cfg.Pitch = msg.Config.Pitch
		}
		c.cfg.TotalTime = msg.Config.TotalTime
		c.cfg.Loop = msg.Config.Loop
		if c.running && pitchChanged {
			c.cancelLocked()
			c.armLocked(c.cfg.Pitch)
		}
	}
	return nil
}

func (c *Cooperative) cancelLocked() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Cooperative) armLocked(d time.Duration) {
	seq := c.seq
	c.timer = c.sched.AfterFunc(d, func() { c.fire(seq) })
}

func (c *Cooperative) fire(seq uint64) {
	c.mu.Lock()
	if !c.running || seq != c.seq {
		c.mu.Unlock()
		return
	}
	// re-arm first so a Stop from the handler cancels the next tick
	c.armLocked(c.cfg.Pitch)
	c.mu.Unlock()

	c.h.tick()
}
