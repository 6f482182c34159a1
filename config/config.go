package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"go-fragseq/render"
	"go-fragseq/sequencer"
	"go-fragseq/ticker"
)

// Mode selects which sequencer a host drives.
type Mode string

const (
	ModeIndependent Mode = "independent"
	ModeQueue       Mode = "queue"
)

// PlaybackConfig holds clock settings
type PlaybackConfig struct {
	Mode     Mode    `yaml:"mode"`
	PitchMS  int     `yaml:"pitchMs"`
	Speed    float64 `yaml:"speed"`
	Loop     bool    `yaml:"loop"`
	Isolated bool    `yaml:"isolated"`
	// Workers bounds concurrent isolated tick workers.
	Workers int64 `yaml:"workers,omitempty"`
}

// RenderConfig mirrors render.Options plus the terminal palette
type RenderConfig struct {
	Width              float64 `yaml:"width,omitempty"`
	Height             float64 `yaml:"height,omitempty"`
	ActiveColor        string  `yaml:"activeColor,omitempty"`
	InactiveColor      string  `yaml:"inactiveColor,omitempty"`
	TimeIndicatorColor string  `yaml:"timeIndicatorColor,omitempty"`
	Palette            string  `yaml:"palette,omitempty"`
}

// MIDIConfig defines the MIDI output fragments trigger notes on
type MIDIConfig struct {
	PortName string `yaml:"portName,omitempty"`
	Channel  int    `yaml:"channel,omitempty"` // 1-16
	Velocity int    `yaml:"velocity,omitempty"`
}

// FragmentConfig describes one scene fragment. A fragment with children is
// a composite and has no duration of its own.
//
// Names must be unique across the whole scene, composites and their children
// included: hosts look fragments up by name. Fragments built in code carry no
// such rule.
type FragmentConfig struct {
	Name       string           `yaml:"name"`
	StartMS    int              `yaml:"startMs,omitempty"`
	DurationMS int              `yaml:"durationMs,omitempty"`
	Note       int              `yaml:"note,omitempty"`
	Children   []FragmentConfig `yaml:"children,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Playback PlaybackConfig   `yaml:"playback"`
	Render   RenderConfig     `yaml:"render,omitempty"`
	MIDI     MIDIConfig       `yaml:"midi,omitempty"`
	Scene    []FragmentConfig `yaml:"scene,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Playback: PlaybackConfig{
			Mode:    ModeIndependent,
			PitchMS: 100,
			Speed:   1,
			Loop:    true,
			Workers: ticker.DefaultWorkerLimit,
		},
		Render: RenderConfig{
			Width:              render.DefaultWidth,
			Height:             render.DefaultHeight,
			ActiveColor:        render.DefaultActiveColor,
			InactiveColor:      render.DefaultInactiveColor,
			TimeIndicatorColor: render.DefaultTimeIndicatorColor,
		},
		MIDI: MIDIConfig{Channel: 1, Velocity: 100},
		Scene: []FragmentConfig{
			{Name: "intro", StartMS: 0, DurationMS: 1000, Note: 60},
			{Name: "pad", StartMS: 500, DurationMS: 2000, Note: 64},
			{Name: "phrase", StartMS: 1500, Children: []FragmentConfig{
				{Name: "hit", StartMS: 0, DurationMS: 250, Note: 67},
				{Name: "echo", StartMS: 250, DurationMS: 250, Note: 67},
				{Name: "tail", StartMS: 100, DurationMS: 800, Note: 72},
			}},
			{Name: "outro", StartMS: 2500, DurationMS: 500, Note: 60},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-fragseq"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Missing fields keep their defaults and
// a missing file yields DefaultConfig.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Playback.Mode {
	case ModeIndependent, ModeQueue:
	default:
		result = multierror.Append(result, fmt.Errorf("playback.mode %q: want %q or %q", c.Playback.Mode, ModeIndependent, ModeQueue))
	}
	if c.Playback.PitchMS <= 0 {
		result = multierror.Append(result, fmt.Errorf("playback.pitchMs %d must be > 0", c.Playback.PitchMS))
	}
	if c.Playback.Speed <= 0 {
		result = multierror.Append(result, fmt.Errorf("playback.speed %v must be > 0", c.Playback.Speed))
	}
	if c.Playback.Workers < 0 {
		result = multierror.Append(result, fmt.Errorf("playback.workers %d must be >= 0", c.Playback.Workers))
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		result = multierror.Append(result, fmt.Errorf("midi.channel %d out of range 1-16", c.MIDI.Channel))
	}
	if c.MIDI.Velocity < 0 || c.MIDI.Velocity > 127 {
		result = multierror.Append(result, fmt.Errorf("midi.velocity %d out of range 0-127", c.MIDI.Velocity))
	}
	if _, err := render.Lanes(nil, 0, 0, c.RenderOptions()); err != nil {
		result = multierror.Append(result, err)
	}

	seen := make(map[string]bool)
	var walk func(prefix string, frags []FragmentConfig)
	walk = func(prefix string, frags []FragmentConfig) {
		for i, f := range frags {
			at := fmt.Sprintf("%s[%d]", prefix, i)
			if f.Name == "" {
				result = multierror.Append(result, fmt.Errorf("%s: name is required", at))
			} else if seen[f.Name] {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate name %q, scene names must be unique", at, f.Name))
			}
			seen[f.Name] = true
			if f.StartMS < 0 || f.DurationMS < 0 {
				result = multierror.Append(result, fmt.Errorf("%s: start and duration must be >= 0", at))
			}
			if len(f.Children) > 0 && f.DurationMS != 0 {
				result = multierror.Append(result, fmt.Errorf("%s: composite %q cannot set a duration", at, f.Name))
			}
			if f.Note < 0 || f.Note > 127 {
				result = multierror.Append(result, fmt.Errorf("%s: note %d out of range 0-127", at, f.Note))
			}
			walk(at+".children", f.Children)
		}
	}
	walk("scene", c.Scene)

	return result.ErrorOrNil()
}

// Pitch is the tick interval as a duration.
func (p PlaybackConfig) Pitch() time.Duration {
	return time.Duration(p.PitchMS) * time.Millisecond
}

// SequencerOptions builds sequencer options for sched.
func (c *Config) SequencerOptions(sched ticker.Scheduler) sequencer.Options {
	backend := ticker.BackendCooperative
	if c.Playback.Isolated {
		backend = ticker.BackendIsolated
	}
	return sequencer.Options{
		Pitch:     c.Playback.Pitch(),
		Loop:      c.Playback.Loop,
		Speed:     c.Playback.Speed,
		Backend:   backend,
		Scheduler: sched,
	}
}

// RenderOptions returns the render section as render.Options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Width:              c.Render.Width,
		Height:             c.Render.Height,
		ActiveColor:        c.Render.ActiveColor,
		InactiveColor:      c.Render.InactiveColor,
		TimeIndicatorColor: c.Render.TimeIndicatorColor,
	}
}
