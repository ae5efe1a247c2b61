package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"longform/internal/core"
)

func TestModelTracksUpdates(t *testing.T) {
	m := New("test topic", nil)

	next, cmd := m.Update(updateMsg(core.ProgressUpdate{
		Stage:              core.StageDraft,
		StageNumber:        3,
		TotalStages:        6,
		ProgressPercentage: 50,
		Status:             "running",
		Details:            "Drafting",
	}))
	model := next.(Model)
	if model.current.Stage != core.StageDraft {
		t.Errorf("current stage = %s", model.current.Stage)
	}
	if cmd == nil {
		t.Error("model stopped listening for updates")
	}
	if len(model.history) != 1 {
		t.Errorf("history = %v", model.history)
	}
	if model.done {
		t.Error("done before completion")
	}
}

func TestModelCompletes(t *testing.T) {
	m := New("test topic", nil)
	next, _ := m.Update(updateMsg(core.ProgressUpdate{Status: "completed", ProgressPercentage: 100}))
	model := next.(Model)
	if !model.done {
		t.Error("completed update did not mark the model done")
	}
	if !strings.Contains(model.View(), "Run complete") {
		t.Error("view missing completion line")
	}
}

func TestModelQuitKeys(t *testing.T) {
	m := New("test topic", nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	model := next.(Model)
	if !model.quitting {
		t.Error("q did not quit")
	}
	if cmd == nil {
		t.Error("quit command not returned")
	}
}

func TestRenderBarBounds(t *testing.T) {
	for _, pct := range []float64{-10, 0, 50, 100, 150} {
		bar := renderBar(pct)
		if bar == "" {
			t.Errorf("empty bar for %.0f%%", pct)
		}
	}
}

func TestHistoryCapped(t *testing.T) {
	var model tea.Model = New("t", nil)
	for i := 0; i < 20; i++ {
		model, _ = model.Update(updateMsg(core.ProgressUpdate{StageNumber: i}))
	}
	if got := len(model.(Model).history); got > 8 {
		t.Errorf("history grew to %d entries", got)
	}
}
