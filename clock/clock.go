// Package clock turns ticks into elapsed time.
//
// A Clock owns at most one ticker.Source while playing. Every tick advances
// the current time by pitch×speed, then either emits a time update, wraps
// around (loop), or ends the session (no loop). Updates are delivered to
// subscribers on the clock's Scheduler, one tick at a time.
package clock

import (
	"math"
	"sync"
	"time"

	"go-fragseq/debug"
	"go-fragseq/errs"
	"go-fragseq/ticker"
)

// Options configures a Clock.
type Options struct {
	TotalTime time.Duration
	Pitch     time.Duration // tick interval, > 0
	Loop      bool
	Speed     float64 // elapsed-time multiplier, 0 means 1

	// Backend selects cooperative or isolated tick generation.
	Backend ticker.Backend
	// Scheduler runs ticks and subscribers. Defaults to ticker.Default().
	Scheduler ticker.Scheduler
	// EmitOnStart delivers one update at the current time once the play
	// delay has passed, before the first tick.
	EmitOnStart bool
}

type observer struct {
	id int
	fn func(time.Duration)
}

type Clock struct {
	sched       ticker.Scheduler
	backend     ticker.Backend
	emitOnStart bool

	mu       sync.Mutex
	total    time.Duration
	pitch    time.Duration
	current  time.Duration
	loop     bool
	speed    float64
	playing  bool
	stopping bool
	session  uint64
	source   ticker.Source
	done     *Completion

	observers []observer
	nextID    int
}

// New validates opts and returns a stopped clock at time 0.
func New(opts Options) (*Clock, error) {
	if opts.Speed == 0 {
		opts.Speed = 1
	}
	if err := validatePitch(opts.Pitch); err != nil {
		return nil, err
	}
	if err := validateTotal(opts.TotalTime); err != nil {
		return nil, err
	}
	if err := validateSpeed(opts.Speed); err != nil {
		return nil, err
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = ticker.Default()
	}
	return &Clock{
		sched:       sched,
		backend:     opts.Backend,
		emitOnStart: opts.EmitOnStart,
		total:       opts.TotalTime,
		pitch:       opts.Pitch,
		loop:        opts.Loop,
		speed:       opts.Speed,
	}, nil
}

func validatePitch(p time.Duration) error {
	if p <= 0 {
		return errs.InvalidArgument("pitch %v must be > 0", p)
	}
	return nil
}

func validateTotal(t time.Duration) error {
	if t < 0 {
		return errs.InvalidArgument("total time %v must be >= 0", t)
	}
	return nil
}

func validateSpeed(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return errs.InvalidArgument("speed %v must be a positive number", s)
	}
	return nil
}

func validateDelay(op string, d time.Duration) error {
	if d < 0 {
		return errs.InvalidArgument("%s delay %v must be >= 0", op, d)
	}
	return nil
}

// Play starts ticking after delay. The returned Completion resolves when the
// clock reaches its end without looping, is stopped, or fails.
func (c *Clock) Play(delay time.Duration) (*Completion, error) {
	return c.play(delay, false)
}

// Replay rewinds to 0 and plays.
func (c *Clock) Replay(delay time.Duration) (*Completion, error) {
	return c.play(delay, true)
}

func (c *Clock) play(delay time.Duration, rewind bool) (*Completion, error) {
	if err := validateDelay("play", delay); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return nil, errs.AlreadyPlaying("clock is already playing")
	}
	if rewind {
		c.current = 0
	}
	c.playing = true
	c.stopping = false
	c.session++
	session := c.session
	done := newCompletion()
	c.done = done
	src := ticker.New(c.backend, c.sched, ticker.Handler{
		OnTick:  func() { c.tick(session) },
		OnError: func(err error) { c.finish(session, err) },
	})
	c.source = src
	cfg := c.sourceConfigLocked()
	c.mu.Unlock()

	debug.Log("clock", "play delay=%v pitch=%v total=%v loop=%v speed=%v backend=%s",
		delay, cfg.Pitch, cfg.TotalTime, cfg.Loop, c.Speed(), c.backend)

	if !c.startSource(session, src, cfg, delay) {
		return done, nil
	}
	if c.emitOnStart {
		c.sched.AfterFunc(delay, func() { c.prime(session) })
	}
	return done, nil
}

// startSource starts src for session and reports whether it is still running.
// A failed start ends the session through its completion. A session finished
// while src was starting has already dropped src, so src is stopped here.
func (c *Clock) startSource(session uint64, src ticker.Source, cfg ticker.Config, delay time.Duration) bool {
	if err := src.Start(cfg, delay); err != nil {
		debug.Log("clock", "tick source failed to start: %v", err)
		c.sched.Post(func() { c.finish(session, err) })
		return false
	}

	c.mu.Lock()
	current := session == c.session && c.source == src
	c.mu.Unlock()
	if !current {
		debug.Log("clock", "session %d ended during start", session)
		src.Stop()
	}
	return current
}

// Stop ends the session after delay. Updates stop immediately; the source is
// torn down and the completion resolved once the delay has passed.
// The current time is kept so a later Play resumes.
func (c *Clock) Stop(delay time.Duration) error {
	if err := validateDelay("stop", delay); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.playing || c.stopping {
		c.mu.Unlock()
		return errs.NotPlaying("clock is not playing")
	}
	c.stopping = true
	session := c.session
	c.mu.Unlock()

	debug.Log("clock", "stop delay=%v", delay)
	if delay == 0 {
		c.finish(session, nil)
		return nil
	}
	c.sched.AfterFunc(delay, func() { c.finish(session, nil) })
	return nil
}

// Reset rewinds the current time to 0.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.current = 0
	c.mu.Unlock()
}

// finish tears down session and resolves its completion with err.
func (c *Clock) finish(session uint64, err error) {
	c.mu.Lock()
	if session != c.session || !c.playing {
		c.mu.Unlock()
		return
	}
	src, done := c.source, c.done
	c.source = nil
	c.playing = false
	c.stopping = false
	c.mu.Unlock()

	if src != nil {
		src.Stop()
	}
	if err != nil {
		debug.Log("clock", "session %d failed: %v", session, err)
	} else {
		debug.Log("clock", "session %d finished", session)
	}
	done.resolve(err)
}

// live reports whether session may still deliver updates.
func (c *Clock) live(session uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return session == c.session && c.playing && !c.stopping
}

func (c *Clock) prime(session uint64) {
	c.mu.Lock()
	if session != c.session || !c.playing || c.stopping {
		c.mu.Unlock()
		return
	}
	now := c.current
	obs := append([]observer(nil), c.observers...)
	c.mu.Unlock()

	c.emit(session, obs, now)
}

func (c *Clock) tick(session uint64) {
	c.mu.Lock()
	if session != c.session || !c.playing || c.stopping {
		c.mu.Unlock()
		return
	}
	if c.loop && c.total <= 0 {
		// a zero-length loop never advances
		c.mu.Unlock()
		debug.LogEvery(100, "clock", "idle tick on zero-length loop")
		return
	}

	c.current += time.Duration(float64(c.pitch) * c.speed)
	if c.current >= c.total {
		if !c.loop {
			c.current = c.total
			c.mu.Unlock()
			c.finish(session, nil)
			return
		}
		c.current %= c.total
	}
	now := c.current
	obs := append([]observer(nil), c.observers...)
	c.mu.Unlock()

	debug.LogEvery(50, "clock", "tick now=%v", now)
	c.emit(session, obs, now)
}

func (c *Clock) emit(session uint64, obs []observer, now time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.finish(session, errs.TickFault("time update at %v panicked: %v", now, r))
		}
	}()
	for _, o := range obs {
		// a subscriber may have stopped the clock
		if !c.live(session) {
			return
		}
		o.fn(now)
	}
}

// Subscribe registers fn for time updates. Subscribers run in registration
// order on the clock's Scheduler. The returned func unsubscribes.
func (c *Clock) Subscribe(fn func(now time.Duration)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.observers = append(c.observers, observer{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// Watch returns a channel of time updates for renderers. Sends never block:
// when the reader lags, updates are dropped. The channel is not closed.
func (c *Clock) Watch(buffer int) (<-chan time.Duration, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan time.Duration, buffer)
	cancel := c.Subscribe(func(now time.Duration) {
		select {
		case ch <- now:
		default:
		}
	})
	return ch, cancel
}

func (c *Clock) sourceConfigLocked() ticker.Config {
	return ticker.Config{Pitch: c.pitch, TotalTime: c.total, Loop: c.loop}
}

// pushConfig forwards the current configuration to a running source.
func (c *Clock) pushConfig() {
	c.mu.Lock()
	src, cfg := c.source, c.sourceConfigLocked()
	c.mu.Unlock()
	if src != nil {
		src.Update(cfg)
	}
}

func (c *Clock) SetPitch(p time.Duration) error {
	if err := validatePitch(p); err != nil {
		return err
	}
	c.mu.Lock()
	c.pitch = p
	c.mu.Unlock()
	c.pushConfig()
	return nil
}

func (c *Clock) SetTotalTime(t time.Duration) error {
	if err := validateTotal(t); err != nil {
		return err
	}
	c.mu.Lock()
	c.total = t
	c.mu.Unlock()
	c.pushConfig()
	return nil
}

func (c *Clock) SetSpeed(s float64) error {
	if err := validateSpeed(s); err != nil {
		return err
	}
	c.mu.Lock()
	c.speed = s
	c.mu.Unlock()
	return nil
}

func (c *Clock) SetLoopFlag(loop bool) {
	c.mu.Lock()
	c.loop = loop
	c.mu.Unlock()
	c.pushConfig()
}

func (c *Clock) Pitch() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch
}

func (c *Clock) TotalTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

func (c *Clock) Loop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

func (c *Clock) CurrentTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Clock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Backend reports which tick source the clock starts.
func (c *Clock) Backend() ticker.Backend { return c.backend }
