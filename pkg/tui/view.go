package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)
	styleSub   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	styleLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleErr   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func (m Model) View() string {
	header := styleHeader.Render(fmt.Sprintf("%s │ %s", m.title, formatDuration(m.now.Sub(m.started))))
	sub := styleSub.Render(m.subtitle)

	status := styleLabel.Render(m.label)
	switch {
	case m.done && m.failed != "":
		status = styleErr.Render("failed: " + m.failed)
	case m.done:
		status = styleOK.Render("done")
	case m.stopping:
		status = styleErr.Render("stopping after the current tester run")
	}

	bar := stylePanel.Render(lipgloss.JoinVertical(lipgloss.Left,
		status,
		m.progress.ViewAs(clamp(m.percent/100)),
	))

	var log []string
	for _, u := range m.lines {
		label := u.Label
		if label == "" {
			label = "finished"
		}
		log = append(log, styleDim.Render(fmt.Sprintf("[%s] %-16s %5.1f%%", u.Time.Format("15:04:05"), label, u.Percent)))
	}

	footer := styleDim.Render("q stop run • q again to quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, sub, bar, strings.Join(log, "\n"), footer) + "\n"
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
