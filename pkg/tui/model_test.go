package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelAppliesUpdates(t *testing.T) {
	m := NewModel("run", "EURUSD", nil)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	next, cmd := m.Update(msgUpdate(Update{Time: at, Label: "Optimisation", Percent: 50}))
	m = next.(Model)
	if cmd != nil || m.label != "Optimisation" || m.percent != 50 || len(m.lines) != 1 {
		t.Fatalf("after first update: %+v", m)
	}

	// same label replaces the last line
	next, _ = m.Update(msgUpdate(Update{Time: at, Label: "Optimisation", Percent: 100}))
	m = next.(Model)
	if len(m.lines) != 1 || m.lines[0].Percent != 100 {
		t.Fatalf("lines %+v", m.lines)
	}

	next, cmd = m.Update(msgUpdate(Update{Time: at, Percent: 100, Done: true, Err: "boom"}))
	m = next.(Model)
	if cmd == nil || !m.done || m.failed != "boom" || m.label != "Optimisation" {
		t.Fatalf("final update not applied: %+v", m)
	}
}

func TestModelStopKey(t *testing.T) {
	stops := 0
	m := NewModel("run", "", func() { stops++ })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	if stops != 1 || !m.stopping || cmd != nil {
		t.Fatalf("first q: stops=%d stopping=%v", stops, m.stopping)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if stops != 1 || cmd == nil {
		t.Fatalf("second q should quit without stopping again")
	}
}

func TestModelKeepsRecentLines(t *testing.T) {
	m := NewModel("run", "", nil)
	for i := 0; i < maxLines+3; i++ {
		m.apply(Update{Label: string(rune('a' + i)), Percent: float64(i)})
	}
	if len(m.lines) != maxLines || m.lines[0].Label != "d" {
		t.Fatalf("lines %+v", m.lines)
	}
	if v := m.View(); v == "" {
		t.Fatalf("empty view")
	}
}
