// Package tui renders live pipeline progress in the terminal.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"longform/internal/core"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	barFillStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barRestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const barWidth = 40

type updateMsg core.ProgressUpdate

type closedMsg struct{}

// Model displays one pipeline run's progress stream.
type Model struct {
	topic    string
	updates  <-chan core.ProgressUpdate
	current  core.ProgressUpdate
	history  []string
	done     bool
	quitting bool
	width    int
}

// New creates a progress model over an update channel. The channel must be
// closed when the run finishes so the view can settle.
func New(topic string, updates <-chan core.ProgressUpdate) Model {
	return Model{topic: topic, updates: updates}
}

// Init starts listening for updates.
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(ch <-chan core.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(update)
	}
}

// Update handles progress messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case updateMsg:
		m.current = core.ProgressUpdate(msg)
		m.history = append(m.history, fmt.Sprintf("[%d/%d] %s: %s",
			m.current.StageNumber, m.current.TotalStages, m.current.Stage, m.current.Details))
		if len(m.history) > 8 {
			m.history = m.history[len(m.history)-8:]
		}
		if m.current.Status == "completed" {
			m.done = true
		}
		return m, waitForUpdate(m.updates)

	case closedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the progress bar, current stage, and recent stage history.
func (m Model) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Generating: "+m.topic) + "\n\n")
	b.WriteString(renderBar(m.current.ProgressPercentage) + fmt.Sprintf(" %3.0f%%\n\n", m.current.ProgressPercentage))

	if m.done {
		b.WriteString(doneStyle.Render("✓ Run complete") + "\n")
	} else if m.current.Stage != "" {
		b.WriteString(stageStyle.Render(fmt.Sprintf("Stage %d/%d: %s", m.current.StageNumber, m.current.TotalStages, m.current.Stage)) + "\n")
	}

	for _, line := range m.history {
		b.WriteString(detailStyle.Render(line) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("[q] quit"))
	return b.String() + "\n"
}

func renderBar(percentage float64) string {
	filled := int(percentage / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barRestStyle.Render(strings.Repeat("░", barWidth-filled))
}

// Run drives the progress view until the update channel closes or the user
// quits. It blocks the calling goroutine.
func Run(topic string, updates <-chan core.ProgressUpdate) error {
	p := tea.NewProgram(New(topic, updates))
	_, err := p.Run()
	return err
}
