package tui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrNoTerminal is returned when stdout cannot host the view.
var ErrNoTerminal = errors.New("tui: stdout is not an interactive terminal")

// Available reports whether the view can run on this process's stdout.
func Available() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("TERM") != "dumb"
}

// Run shows updates until one is marked Done, updates is closed or ctx ends.
// onStop is called the first time the user asks to stop.
func Run(ctx context.Context, title, subtitle string, updates <-chan Update, onStop func()) error {
	if !Available() {
		return ErrNoTerminal
	}

	p := tea.NewProgram(NewModel(title, subtitle, onStop), tea.WithContext(ctx))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					p.Send(msgClosed{})
					return
				}
				p.Send(msgUpdate(u))
				if u.Done {
					return
				}
			}
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
