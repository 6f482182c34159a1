package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-fragseq/clock"
	"go-fragseq/debug"
	"go-fragseq/midi"
	"go-fragseq/render"
	"go-fragseq/sequencer"
	"go-fragseq/theme"
	"go-fragseq/widgets"
)

const (
	speedStep = 1.25
	pitchStep = 5 * time.Millisecond
	minPitch  = time.Millisecond
	minCols   = 10
)

var keySections = []widgets.KeySection{
	{Title: "Transport", Keys: []widgets.KeyBinding{
		{Key: "p", Desc: "play/stop"},
		{Key: "r", Desc: "replay"},
		{Key: "l", Desc: "loop"},
	}},
	{Title: "Clock", Keys: []widgets.KeyBinding{
		{Key: "+/-", Desc: "speed"},
		{Key: "[/]", Desc: "pitch"},
	}},
	{Keys: []widgets.KeyBinding{
		{Key: "?", Desc: "help"},
		{Key: "q", Desc: "quit"},
	}},
}

// layoutBounds holds cached layout info
type layoutBounds struct {
	timelineTop    int
	timelineHeight int
}

type Model struct {
	Player     sequencer.Player
	Bank       *midi.Bank // may be nil
	Theme      *theme.Theme
	RenderOpts render.Options
	Title      string

	timeline *widgets.Timeline
	updates  <-chan time.Duration
	unwatch  func()
	done     *clock.Completion
	quitting bool
	showHelp bool
	tooltip  string
	err      error
	bounds   *layoutBounds
}

// UpdateMsg carries a clock update.
type UpdateMsg struct {
	Now time.Duration
}

// DoneMsg reports the end of the playback session behind Done.
type DoneMsg struct {
	Done *clock.Completion
	Err  error
}

func NewModel(p sequencer.Player, bank *midi.Bank, th *theme.Theme, opts render.Options) Model {
	updates, unwatch := p.Clock().Watch(1)
	return Model{
		Player:     p,
		Bank:       bank,
		Theme:      th,
		RenderOpts: opts,
		Title:      "go-fragseq",
		timeline:   widgets.NewTimeline(th, 80),
		updates:    updates,
		unwatch:    unwatch,
		bounds:     &layoutBounds{},
	}
}

// WithCompletion makes the model wait on a session started before the
// program ran.
func (m Model) WithCompletion(done *clock.Completion) Model {
	m.done = done
	return m
}

func ListenForUpdates(updates <-chan time.Duration) tea.Cmd {
	return func() tea.Msg {
		now, ok := <-updates
		if !ok {
			return nil
		}
		return UpdateMsg{Now: now}
	}
}

func WaitForDone(done *clock.Completion) tea.Cmd {
	return func() tea.Msg {
		<-done.Done()
		return DoneMsg{Done: done, Err: done.Err()}
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.updates)}
	if m.done != nil {
		cmds = append(cmds, WaitForDone(m.done))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.timeline.Cols = max(msg.Width, minCols)

	case tea.MouseMsg:
		m.tooltip = m.hitTest(msg.X, msg.Y)

	case UpdateMsg:
		return m, ListenForUpdates(m.updates)

	case DoneMsg:
		// a session replaced since it was started
		if msg.Done != m.done {
			return m, nil
		}
		if msg.Err != nil {
			m.err = msg.Err
		}
		if m.Bank != nil {
			m.Bank.Release()
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	var cmd tea.Cmd

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.Player.IsPlaying() {
			_ = m.Player.Stop(0)
		}
		if m.Bank != nil {
			m.Bank.Release()
		}
		m.unwatch()
		return m, tea.Quit

	case "p", " ":
		if m.Player.IsPlaying() {
			err = m.Player.Stop(0)
			break
		}
		var done *clock.Completion
		if done, err = m.Player.Play(0); err == nil {
			m.done = done
			cmd = WaitForDone(done)
		}

	case "r":
		if m.Player.IsPlaying() {
			if err = m.Player.Stop(0); err != nil {
				break
			}
		}
		var done *clock.Completion
		if done, err = m.Player.Replay(0); err == nil {
			m.done = done
			cmd = WaitForDone(done)
		}

	case "+", "=":
		err = m.Player.SetSpeed(m.Player.Speed() * speedStep)

	case "-", "_":
		err = m.Player.SetSpeed(m.Player.Speed() / speedStep)

	case "]":
		err = m.Player.SetPitch(m.Player.Pitch() + pitchStep)

	case "[":
		err = m.Player.SetPitch(max(m.Player.Pitch()-pitchStep, minPitch))

	case "l":
		m.Player.SetLoopFlag(!m.Player.IsLooping())

	case "?":
		m.showHelp = !m.showHelp
	}

	m.err = err
	if err != nil {
		debug.Log("tui", "key %q: %v", msg.String(), err)
	}
	return m, cmd
}

func (m Model) hitTest(x, y int) string {
	if y < m.bounds.timelineTop || y >= m.bounds.timelineTop+m.bounds.timelineHeight {
		return ""
	}
	v, ok := m.timeline.HitTest(x, y-m.bounds.timelineTop)
	if !ok {
		return ""
	}
	f := v.Fragment
	return fmt.Sprintf("%s  %s +%s  %s", v.Name, seconds(f.StartPoint()), seconds(f.Duration()), f.Kind())
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func (m Model) legend() string {
	active, inactive, indicator, err := m.RenderOpts.Colors()
	if err != nil {
		return ""
	}
	return strings.Join([]string{
		widgets.RenderLegendItem(active, "active", "fragment under the play head"),
		widgets.RenderLegendItem(inactive, "inactive", "outside its window"),
		widgets.RenderLegendItem(indicator, "now", "current time"),
	}, "\n")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())
	tooltipStyle := lipgloss.NewStyle().
		Foreground(m.Theme.FG()).
		Background(m.Theme.Muted()).
		Padding(0, 1)

	sym, playState := m.Theme.Symbols.Stopped, "STOP"
	if m.Player.IsPlaying() {
		sym, playState = m.Theme.Symbols.Playing, "PLAY"
	}
	loop := ""
	if m.Player.IsLooping() {
		loop = "  " + string(m.Theme.Symbols.Looping)
	}

	stateStyle := dimStyle
	if m.Player.IsPlaying() {
		stateStyle = lipgloss.NewStyle().Foreground(m.Theme.Success())
	}

	header := headerStyle.Render(m.Title+"  ") +
		stateStyle.Render(fmt.Sprintf("%c %s", sym, playState)) +
		headerStyle.Render(fmt.Sprintf("  %s / %s  x%.2f  pitch:%v%s",
			seconds(m.Player.CurrentTime()), seconds(m.Player.TotalTime()),
			m.Player.Speed(), m.Player.Pitch(), loop))

	frame, err := m.Player.Frame(m.RenderOpts)
	var timeline string
	if err != nil {
		timeline = errStyle.Render(err.Error())
	} else {
		m.timeline.SetFrame(frame)
		timeline = m.timeline.View()
	}

	var help string
	if m.showHelp {
		help = dimStyle.Render(widgets.RenderKeyHelp(keySections)) + "\n\n" + m.legend()
	} else {
		var keys []widgets.KeyBinding
		for _, sec := range keySections {
			keys = append(keys, sec.Keys...)
		}
		help = dimStyle.Render(widgets.RenderKeyLine(keys))
	}

	// Compute layout bounds
	headerHeight := lipgloss.Height(header)
	m.bounds.timelineTop = 1 + headerHeight + 1
	m.bounds.timelineHeight = m.timeline.Rows()

	// Build output
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(timeline)
	out.WriteString("\n\n")
	out.WriteString(help)

	if m.err != nil {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(m.err.Error()))
	}
	if m.tooltip != "" {
		out.WriteString("\n")
		out.WriteString(tooltipStyle.Render(m.tooltip))
	}

	return out.String()
}
