package host

import (
	"github.com/urfave/cli"

	"go-fragseq/config"
	"go-fragseq/debug"
)

// Flags are accepted by every command that plays a scene. Set flags override
// the config file.
var Flags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "scene config file (default: ~/.config/go-fragseq/config.yaml)",
	},
	cli.StringFlag{
		Name:  "mode, m",
		Usage: "sequencer mode: independent or queue",
	},
	cli.IntFlag{
		Name:  "pitch",
		Usage: "tick interval in milliseconds",
	},
	cli.Float64Flag{
		Name:  "speed, s",
		Usage: "playback speed multiplier",
	},
	cli.BoolFlag{
		Name:  "loop, l",
		Usage: "loop playback",
	},
	cli.BoolFlag{
		Name:  "no-loop",
		Usage: "play once",
	},
	cli.BoolFlag{
		Name:  "isolated",
		Usage: "run the clock on its own worker goroutine",
	},
	cli.Int64Flag{
		Name:  "workers",
		Usage: "max concurrent isolated workers",
	},
	cli.StringFlag{
		Name:  "midi",
		Usage: "MIDI output port to send fragment notes to (substring match)",
	},
	cli.BoolFlag{
		Name:  "debug, d",
		Usage: "write a debug log to ~/.config/go-fragseq/debug.log",
	},
}

// LoadConfig loads the config named by the flags and applies overrides.
func LoadConfig(ctx *cli.Context) (*config.Config, error) {
	if ctx.Bool("debug") {
		if err := debug.Enable(""); err != nil {
			return nil, err
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if path := ctx.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("mode") {
		cfg.Playback.Mode = config.Mode(ctx.String("mode"))
	}
	if ctx.IsSet("pitch") {
		cfg.Playback.PitchMS = ctx.Int("pitch")
	}
	if ctx.IsSet("speed") {
		cfg.Playback.Speed = ctx.Float64("speed")
	}
	if ctx.Bool("loop") {
		cfg.Playback.Loop = true
	}
	if ctx.Bool("no-loop") {
		cfg.Playback.Loop = false
	}
	if ctx.Bool("isolated") {
		cfg.Playback.Isolated = true
	}
	if ctx.IsSet("workers") {
		cfg.Playback.Workers = ctx.Int64("workers")
	}
	if ctx.IsSet("midi") {
		cfg.MIDI.PortName = ctx.String("midi")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	debug.Log("host", "config mode=%s pitch=%dms speed=%v loop=%v isolated=%v",
		cfg.Playback.Mode, cfg.Playback.PitchMS, cfg.Playback.Speed, cfg.Playback.Loop, cfg.Playback.Isolated)
	return cfg, nil
}
