// Command fragplay plays a fragment scene without the terminal UI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"go-fragseq/config"
	"go-fragseq/debug"
	"go-fragseq/host"
	"go-fragseq/midi"
	"go-fragseq/ticker"
)

func main() {
	app := cli.NewApp()
	app.Name = "fragplay"
	app.Usage = "headless fragment scene player"
	app.UsageText = "fragplay <command> [arguments...]"
	app.Commands = []cli.Command{
		{
			Name:    "play",
			Aliases: []string{"p"},
			Usage:   "play the scene with a progress bar",
			Action:  play,
			Flags: append(host.Flags, cli.DurationFlag{
				Name:  "for",
				Usage: "stop after this long (looping scenes run until interrupted otherwise)",
			}),
		},
		{
			Name:   "init",
			Usage:  "write the default scene config",
			Action: initConfig,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Usage: "path to write (default: ~/.config/go-fragseq/config.yaml)",
				},
				cli.BoolFlag{
					Name:  "force, f",
					Usage: "overwrite an existing file",
				},
			},
		},
		{
			Name:   "ports",
			Usage:  "list MIDI output ports",
			Action: ports,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig(ctx *cli.Context) error {
	cfg := config.DefaultConfig()
	path := ctx.String("config")
	save := func() error { return cfg.SaveFile(path) }
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
		save = cfg.Save
	}
	if _, err := os.Stat(path); err == nil && !ctx.Bool("force") {
		return fmt.Errorf("%s exists (use --force to overwrite)", path)
	}
	if err := save(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func ports(ctx *cli.Context) error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")
	names, err := midi.ListOutPorts()
	if err != nil {
		return err
	}
	defer midi.Close()
	if len(names) == 0 {
		fmt.Println("  none")
	}
	for i, name := range names {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func play(ctx *cli.Context) error {
	cfg, err := host.LoadConfig(ctx)
	if err != nil {
		return err
	}

	var send midi.SendFunc
	if cfg.MIDI.PortName != "" {
		var port string
		send, port, err = midi.OpenOut(cfg.MIDI.PortName)
		if err != nil {
			return err
		}
		defer midi.Close()
		fmt.Printf("MIDI out: %s\n", port)
	}

	loop := ticker.NewLoop()
	defer loop.Close()

	h, err := host.Build(cfg, loop, send)
	if err != nil {
		return err
	}
	defer h.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if d := ctx.Duration("for"); d > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, d)
		defer cancel()
	}

	total := h.Player.TotalTime()
	p := mpb.New(mpb.WithWidth(64), mpb.WithRefreshRate(50*time.Millisecond))
	bar := newBar(p, string(cfg.Playback.Mode), total)
	cancelProgress := h.Player.Clock().Subscribe(func(now time.Duration) {
		bar.SetCurrent(now.Milliseconds())
	})
	defer cancelProgress()

	done, err := h.Player.Play(0)
	if err != nil {
		return err
	}

	select {
	case <-done.Done():
	case <-runCtx.Done():
		debug.Log("fragplay", "stopping: %v", runCtx.Err())
		_ = h.Player.Stop(0)
	}

	if err := done.Wait(context.Background()); err != nil {
		bar.Abort(false)
		p.Wait()
		return err
	}
	bar.SetTotal(-1, true)
	p.Wait()
	if h.Bank != nil && h.Bank.Err() != nil {
		return fmt.Errorf("MIDI output: %w", h.Bank.Err())
	}
	return nil
}

func newBar(p *mpb.Progress, name string, total time.Duration) *mpb.Bar {
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")
	return p.New(max(total.Milliseconds(), 1),
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 4}), "done",
			),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
		),
	)
}
