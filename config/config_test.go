package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"go-fragseq/fragment"
	"go-fragseq/ticker"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Playback.PitchMS != 100 || cfg.Playback.Mode != ModeIndependent {
		t.Errorf("playback = %+v", cfg.Playback)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Playback.Mode = ModeQueue
	cfg.Playback.PitchMS = 25
	cfg.Playback.Isolated = true
	cfg.MIDI.PortName = "IAC Driver Bus 1"
	if err := cfg.SaveFile(path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Playback != cfg.Playback || got.MIDI != cfg.MIDI {
		t.Errorf("loaded %+v %+v, want %+v %+v", got.Playback, got.MIDI, cfg.Playback, cfg.MIDI)
	}
	if len(got.Scene) != len(cfg.Scene) || len(got.Scene[2].Children) != 3 {
		t.Errorf("scene = %+v", got.Scene)
	}
}

func TestLoadFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "playback:\n  mode: queue\n  pitchMs: 50\n  speed: 2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Playback.Pitch() != 50*time.Millisecond || cfg.Playback.Speed != 2 {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.MIDI.Channel != 1 || cfg.Render.ActiveColor == "" || len(cfg.Scene) == 0 {
		t.Errorf("defaults lost: midi=%+v render=%+v", cfg.MIDI, cfg.Render)
	}
}

func TestValidateCollectsEveryError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Playback.Mode = "sideways"
	cfg.Playback.PitchMS = 0
	cfg.MIDI.Channel = 17
	cfg.Render.ActiveColor = "crimson"
	cfg.Scene = append(cfg.Scene, FragmentConfig{Name: "intro", DurationMS: -1})

	err := cfg.Validate()
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("got %T %v, want *multierror.Error", err, err)
	}
	if len(merr.Errors) != 6 {
		t.Errorf("got %d errors, want 6:\n%v", len(merr.Errors), err)
	}
	for _, want := range []string{"playback.mode", "pitchMs", "midi.channel", "crimson", "duplicate name", "scene[4]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in:\n%v", want, err)
		}
	}
}

func TestValidateSceneNames(t *testing.T) {
	tests := []struct {
		name  string
		scene []FragmentConfig
		dup   string
	}{
		{
			name:  "distinct",
			scene: []FragmentConfig{{Name: "a", DurationMS: 100}, {Name: "b", DurationMS: 100}},
		},
		{
			name:  "top level",
			scene: []FragmentConfig{{Name: "a", DurationMS: 100}, {Name: "a", DurationMS: 200}},
			dup:   `scene[1]: duplicate name "a"`,
		},
		{
			name: "child shadows top level",
			scene: []FragmentConfig{
				{Name: "group", Children: []FragmentConfig{{Name: "a", DurationMS: 100}}},
				{Name: "a", DurationMS: 100},
			},
			dup: `scene[1]: duplicate name "a"`,
		},
		{
			name: "children of different composites",
			scene: []FragmentConfig{
				{Name: "g1", Children: []FragmentConfig{{Name: "x", DurationMS: 100}}},
				{Name: "g2", Children: []FragmentConfig{{Name: "x", DurationMS: 100}}},
			},
			dup: `duplicate name "x"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Scene = tt.scene
			err := cfg.Validate()
			if tt.dup == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.dup) {
				t.Errorf("Validate = %v, want %q", err, tt.dup)
			}
		})
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("playback:\n  pitchMs: -5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSequencerOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Playback.Isolated = true
	v := ticker.NewVirtual()
	opts := cfg.SequencerOptions(v)
	if opts.Backend != ticker.BackendIsolated || opts.Pitch != 100*time.Millisecond || opts.Scheduler != v {
		t.Errorf("options = %+v", opts)
	}
}

func TestBuildScene(t *testing.T) {
	cfg := DefaultConfig()
	var names []string
	cb := func(fc FragmentConfig) fragment.Callback {
		names = append(names, fc.Name)
		return func(time.Duration) {}
	}

	top, all, err := cfg.BuildScene(ModeIndependent, cb)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 4 || len(all) != 7 {
		t.Fatalf("top=%d all=%d", len(top), len(all))
	}
	phrase := top[2]
	if !phrase.HasChildren() || len(phrase.Children()) != 3 {
		t.Fatalf("phrase = %v children=%d", phrase.Kind(), len(phrase.Children()))
	}
	if phrase.Duration() != 900*time.Millisecond || phrase.StartPoint() != 1500*time.Millisecond {
		t.Errorf("phrase window = %v+%v", phrase.StartPoint(), phrase.Duration())
	}
	if top[1].Kind() != fragment.Positioned || top[1].StartPoint() != 500*time.Millisecond {
		t.Errorf("pad = %v at %v", top[1].Kind(), top[1].StartPoint())
	}
	// composites get no callback of their own
	if len(names) != 6 {
		t.Errorf("callbacks built for %v", names)
	}

	top, _, err = cfg.BuildScene(ModeQueue, nil)
	if err != nil {
		t.Fatal(err)
	}
	if top[0].Kind() != fragment.Leaf || top[2].Kind() != fragment.Composite {
		t.Errorf("queue kinds = %v %v", top[0].Kind(), top[2].Kind())
	}
}
