package midi

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"go-fragseq/debug"
	"go-fragseq/fragment"
)

// Bank turns fragment activity into note on/off edges.
//
// Fragment callbacks only say "active now". A Bank collects those marks for
// one clock update and Flush compares them with the previous update: notes
// that became active are switched on, notes that went quiet are switched off.
// Subscribe Flush to the clock after the sequencer so it runs last.
type Bank struct {
	send     SendFunc
	channel  uint8
	velocity uint8

	mu      sync.Mutex
	notes   map[uuid.UUID]uint8
	current map[uuid.UUID]bool
	held    map[uint8]int // note -> fragments holding it
	sendErr error
}

// NewBank creates a bank sending on channel (1-16) with velocity.
func NewBank(send SendFunc, channel, velocity uint8) *Bank {
	if channel < 1 {
		channel = 1
	}
	if channel > 16 {
		channel = 16
	}
	return &Bank{
		send:     send,
		channel:  channel - 1,
		velocity: velocity,
		notes:    make(map[uuid.UUID]uint8),
		current:  make(map[uuid.UUID]bool),
		held:     make(map[uint8]int),
	}
}

// Callback returns a fragment callback that marks id as active on note.
func (b *Bank) Callback(id uuid.UUID, note uint8) fragment.Callback {
	b.mu.Lock()
	b.notes[id] = note
	b.mu.Unlock()
	return func(time.Duration) { b.mark(id) }
}

// Bind attaches a note callback to a non-composite fragment.
func (b *Bank) Bind(f *fragment.Fragment, note uint8) error {
	return f.SetCallback(b.Callback(f.ID(), note))
}

func (b *Bank) mark(id uuid.UUID) {
	b.mu.Lock()
	b.current[id] = true
	b.mu.Unlock()
}

// Flush emits the edges since the previous Flush. The time argument lets it
// be subscribed to a clock directly.
func (b *Bank) Flush(time.Duration) {
	b.mu.Lock()
	want := make(map[uint8]int)
	for id := range b.current {
		want[b.notes[id]]++
	}
	b.current = make(map[uuid.UUID]bool)
	var events []Event
	for note := range b.held {
		if want[note] == 0 {
			events = append(events, Event{Type: NoteOff, Channel: b.channel, Note: note})
		}
	}
	for note := range want {
		if b.held[note] == 0 {
			events = append(events, Event{Type: NoteOn, Channel: b.channel, Note: note, Velocity: b.velocity})
		}
	}
	b.held = want
	b.mu.Unlock()

	b.emit(events)
}

// Release switches off every held note, for stop and shutdown.
func (b *Bank) Release() {
	b.mu.Lock()
	var events []Event
	for note := range b.held {
		events = append(events, Event{Type: NoteOff, Channel: b.channel, Note: note})
	}
	b.held = make(map[uint8]int)
	b.current = make(map[uuid.UUID]bool)
	b.mu.Unlock()

	b.emit(events)
}

// Held reports the notes currently switched on.
func (b *Bank) Held() []uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint8, 0, len(b.held))
	for note := range b.held {
		out = append(out, note)
	}
	return out
}

// Err returns the first send failure, if any.
func (b *Bank) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendErr
}

func (b *Bank) emit(events []Event) {
	if b.send == nil {
		return
	}
	for _, e := range events {
		if err := b.send(e.Message()); err != nil {
			debug.Log("midi", "send %+v failed: %v", e, err)
			b.mu.Lock()
			if b.sendErr == nil {
				b.sendErr = err
			}
			b.mu.Unlock()
		}
	}
}
