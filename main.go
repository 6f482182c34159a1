package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli"

	"go-fragseq/debug"
	"go-fragseq/host"
	"go-fragseq/midi"
	"go-fragseq/theme"
	"go-fragseq/ticker"
	"go-fragseq/tui"
)

func main() {
	app := cli.NewApp()
	app.Name = "go-fragseq"
	app.Usage = "play a fragment scene in the terminal"
	app.UsageText = "go-fragseq [options]"
	app.Flags = append(host.Flags, cli.BoolFlag{
		Name:  "play, p",
		Usage: "start playing immediately",
	})
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := host.LoadConfig(ctx)
	if err != nil {
		return err
	}

	th, err := theme.Load(cfg.Render.Palette)
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
		debug.Log("main", "MIDI out: %s", port)
	}

	loop := ticker.NewLoop()
	defer loop.Close()

	h, err := host.Build(cfg, loop, send)
	if err != nil {
		return err
	}
	defer h.Close()

	m := tui.NewModel(h.Player, h.Bank, th, cfg.RenderOptions())
	m.Title = fmt.Sprintf("go-fragseq [%s]", cfg.Playback.Mode)
	if ctx.Bool("play") {
		done, err := h.Player.Play(0)
		if err != nil {
			return err
		}
		m = m.WithCompletion(done)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
