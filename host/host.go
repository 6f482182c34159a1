// Package host assembles a playable scene from configuration: the fragments,
// the sequencer for the configured mode and an optional MIDI note bank.
package host

import (
	"time"

	"go-fragseq/config"
	"go-fragseq/debug"
	"go-fragseq/fragment"
	"go-fragseq/midi"
	"go-fragseq/sequencer"
	"go-fragseq/ticker"
)

type Host struct {
	Config    *config.Config
	Player    sequencer.Player
	Bank      *midi.Bank // nil without a MIDI output
	Fragments []config.Built
}

// Build creates the scene's sequencer on sched. With a non-nil send, leaves
// that carry a note trigger it through a Bank flushed after every update.
func Build(cfg *config.Config, sched ticker.Scheduler, send midi.SendFunc) (*Host, error) {
	if cfg.Playback.Workers > 0 {
		ticker.SetWorkerLimit(cfg.Playback.Workers)
	}

	top, all, err := cfg.BuildScene(cfg.Playback.Mode, nil)
	if err != nil {
		return nil, err
	}

	h := &Host{Config: cfg, Fragments: all}
	if send != nil {
		h.Bank = midi.NewBank(send, uint8(cfg.MIDI.Channel), uint8(cfg.MIDI.Velocity))
	}
	for _, b := range all {
		if b.Fragment.HasChildren() {
			continue
		}
		if err := h.bind(b); err != nil {
			return nil, err
		}
	}

	opts := cfg.SequencerOptions(sched)
	switch cfg.Playback.Mode {
	case config.ModeQueue:
		h.Player, err = sequencer.New(opts)
	default:
		h.Player, err = sequencer.NewIndependent(opts)
	}
	if err != nil {
		return nil, err
	}
	for _, f := range top {
		if err := h.Player.Push(f); err != nil {
			return nil, err
		}
	}

	if h.Bank != nil {
		h.Player.Clock().Subscribe(h.Bank.Flush)
	}
	debug.Log("host", "scene: %d top-level, %d total, total time %v, backend %s",
		len(top), len(all), h.Player.TotalTime(), h.Player.Clock().Backend())
	return h, nil
}

func (h *Host) bind(b config.Built) error {
	if h.Bank != nil && b.Config.Note > 0 {
		return h.Bank.Bind(b.Fragment, uint8(b.Config.Note))
	}
	name := b.Fragment.Name()
	return b.Fragment.SetCallback(func(now time.Duration) {
		debug.LogEvery(50, "fragment", "%s active at %v", name, now)
	})
}

// Find returns the built fragment named name.
func (h *Host) Find(name string) (*fragment.Fragment, bool) {
	for _, b := range h.Fragments {
		if b.Config.Name == name {
			return b.Fragment, true
		}
	}
	return nil, false
}

// Close stops playback and switches held notes off.
func (h *Host) Close() {
	if h.Player.IsPlaying() {
		_ = h.Player.Stop(0)
	}
	if h.Bank != nil {
		h.Bank.Release()
	}
}
