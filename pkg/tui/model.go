// Package tui renders the progress of a command-line optimisation run.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const maxLines = 8

// Update is one progress step of the run being displayed.
type Update struct {
	Time    time.Time
	Label   string
	Percent float64
	// Done marks the last update; Err is set when the run failed.
	Done bool
	Err  string
}

type (
	msgUpdate Update
	msgClosed struct{}
	msgTick   time.Time
)

// Model is the bubbletea model of the progress view.
type Model struct {
	title    string
	subtitle string
	started  time.Time
	now      time.Time

	label   string
	percent float64
	lines   []Update
	done    bool
	failed  string

	stopping bool
	onStop   func()

	width    int
	progress progress.Model
}

func NewModel(title, subtitle string, onStop func()) Model {
	now := time.Now()
	return Model{
		title:    title,
		subtitle: subtitle,
		started:  now,
		now:      now,
		label:    "Starting",
		onStop:   onStop,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return msgTick(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// The first press stops the run; the view closes on its final
			// update. A second press leaves at once.
			if m.stopping || m.done {
				return m, tea.Quit
			}
			m.stopping = true
			if m.onStop != nil {
				m.onStop()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 8; w > 10 && w < 80 {
			m.progress.Width = w
		}
		return m, nil

	case msgUpdate:
		u := Update(msg)
		m.apply(u)
		if u.Done {
			return m, tea.Quit
		}
		return m, nil

	case msgClosed:
		m.done = true
		return m, tea.Quit

	case msgTick:
		m.now = time.Time(msg)
		return m, tick()
	}
	return m, nil
}

func (m *Model) apply(u Update) {
	if u.Label != "" {
		m.label = u.Label
	}
	m.percent = u.Percent
	if u.Done {
		m.done = true
		m.failed = u.Err
	}
	if len(m.lines) > 0 && m.lines[len(m.lines)-1].Label == u.Label && !u.Done {
		m.lines[len(m.lines)-1] = u
		return
	}
	m.lines = append(m.lines, u)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
}
