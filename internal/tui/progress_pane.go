package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/rgate/internal/events"
)

// ProgressPaneModel shows gate phase counts and benchmark tallies.
type ProgressPaneModel struct {
	total   int
	passed  int
	failed  int
	pending int
	aborted bool

	benchPassed  int
	benchFailed  int
	benchSkipped int

	width   int
	height  int
	focused bool
}

// NewProgressPaneModel creates a new progress pane model.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.GateProgressEvent:
		m.total = msg.Total
		m.passed = msg.Passed
		m.failed = msg.Failed
		m.pending = msg.Pending
		m.aborted = msg.Aborted

	case events.BenchmarkCompletedEvent:
		switch msg.Outcome {
		case "passed":
			m.benchPassed++
		case "unavailable":
			m.benchSkipped++
		default:
			m.benchFailed++
		}
	}

	return m, nil
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if m.total > 0 {
		b.WriteString(fmt.Sprintf("Phases:  %d\n", m.total))
		b.WriteString(fmt.Sprintf("Passed:  %s\n", StyleStatusComplete.Render(fmt.Sprintf("%d", m.passed))))
		b.WriteString(fmt.Sprintf("Failed:  %s\n", StyleStatusFailed.Render(fmt.Sprintf("%d", m.failed))))
		b.WriteString(fmt.Sprintf("Pending: %s\n", StyleStatusPending.Render(fmt.Sprintf("%d", m.pending))))
		if m.aborted {
			b.WriteString(StyleStatusFailed.Render("Gate aborted"))
			b.WriteString("\n")
		}
		b.WriteString("\n")

		barWidth := min(m.width-4, 40)
		passedWidth := (m.passed * barWidth) / m.total
		failedWidth := (m.failed * barWidth) / m.total
		pendingWidth := barWidth - passedWidth - failedWidth

		bar := StyleStatusComplete.Render(strings.Repeat("=", max(0, passedWidth)))
		bar += StyleStatusFailed.Render(strings.Repeat("!", max(0, failedWidth)))
		bar += StyleStatusPending.Render(strings.Repeat(".", max(0, pendingWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", bar, m.passed+m.failed, m.total))
	}

	if n := m.benchPassed + m.benchFailed + m.benchSkipped; n > 0 {
		b.WriteString(fmt.Sprintf("Benchmarks: %d  %s passed  %s failed  %s skipped\n",
			n,
			StyleStatusComplete.Render(fmt.Sprintf("%d", m.benchPassed)),
			StyleStatusFailed.Render(fmt.Sprintf("%d", m.benchFailed)),
			StyleStatusPending.Render(fmt.Sprintf("%d", m.benchSkipped)),
		))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
