package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/rgate/internal/events"
)

// Task status values shown in the list.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// TaskState is the display state of one gate phase or benchmark.
type TaskState struct {
	Key       string // "phase:<name>" or "bench:<id>"
	Name      string
	Fatal     bool
	Status    string
	Output    []string
	StartTime time.Time
	Duration  time.Duration
}

// TaskPaneModel lists phases and benchmarks with a scrollable output viewport.
type TaskPaneModel struct {
	tasks       map[string]*TaskState
	order       []string
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
	updateTag   int // for debouncing
}

// NewTaskPaneModel creates a new task pane model.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{
		tasks:    make(map[string]*TaskState),
		viewport: viewport.New(0, 0),
	}
}

// tickMsg is used for debouncing viewport updates.
type tickMsg struct {
	tag int
}

func phaseKey(name string) string { return "phase:" + name }
func benchKey(id string) string   { return "bench:" + id }

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.order)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.PhaseStartedEvent:
		m.add(&TaskState{
			Key:       phaseKey(msg.Name),
			Name:      msg.Name,
			Fatal:     msg.Fatal,
			Status:    StatusRunning,
			StartTime: msg.Timestamp,
		})

	case events.PhaseOutputEvent:
		key := phaseKey(msg.Name)
		if task, ok := m.tasks[key]; ok {
			task.Output = append(task.Output, msg.Line)
			if m.selectedKey() == key {
				m.updateTag++
				tag := m.updateTag
				return m, tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
					return tickMsg{tag: tag}
				})
			}
		}

	case events.PhaseCompletedEvent:
		m.finish(phaseKey(msg.Name), StatusPassed, msg.Duration,
			fmt.Sprintf("[Passed in %v]", msg.Duration.Round(time.Millisecond)))

	case events.PhaseFailedEvent:
		m.finish(phaseKey(msg.Name), StatusFailed, msg.Duration,
			fmt.Sprintf("[Failed: %v]", msg.Err))

	case events.BenchmarkStartedEvent:
		m.add(&TaskState{
			Key:       benchKey(msg.ID),
			Name:      msg.ID,
			Status:    StatusRunning,
			Output:    []string{fmt.Sprintf("%s running %s", msg.Backend, msg.Path)},
			StartTime: msg.Timestamp,
		})

	case events.BenchmarkCompletedEvent:
		key := benchKey(msg.ID)
		if _, ok := m.tasks[key]; !ok {
			// Not-found and unavailable benchmarks never start.
			m.add(&TaskState{Key: key, Name: msg.ID, StartTime: msg.Timestamp})
		}
		status := StatusPassed
		switch msg.Outcome {
		case "failed", "not-found":
			status = StatusFailed
		case "unavailable":
			status = StatusSkipped
		}
		m.finish(key, status, msg.Duration,
			fmt.Sprintf("[%s, exit code %d]", msg.Outcome, msg.ExitCode))

	case tickMsg:
		if msg.tag == m.updateTag {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

func (m *TaskPaneModel) add(task *TaskState) {
	if _, exists := m.tasks[task.Key]; exists {
		return
	}
	m.tasks[task.Key] = task
	m.order = append(m.order, task.Key)
	if len(m.order) == 1 {
		m.selectedIdx = 0
		m.updateViewportContent()
	}
}

func (m *TaskPaneModel) finish(key, status string, d time.Duration, note string) {
	task, ok := m.tasks[key]
	if !ok {
		return
	}
	task.Status = status
	task.Duration = d
	task.Output = append(task.Output, "", note)
	if m.selectedKey() == key {
		m.updateViewportContent()
	}
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := m.listWidth()
	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderList(listWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m TaskPaneModel) listWidth() int {
	return min(36, max(m.width/3, 16))
}

func (m TaskPaneModel) renderList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	}
	for i, key := range m.order {
		task := m.tasks[key]
		name := task.Name
		if len(name) > width-4 && width > 7 {
			name = name[:width-7] + "..."
		}

		line := fmt.Sprintf("%s %s", StatusIcon(task.Status), name)
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator.
func StatusIcon(status string) string {
	switch status {
	case StatusRunning:
		return StyleStatusRunning.Render("●")
	case StatusPassed:
		return StyleStatusComplete.Render("✓")
	case StatusFailed:
		return StyleStatusFailed.Render("✗")
	default:
		return StyleStatusPending.Render("○")
	}
}

// Task returns the display state for key, if known.
func (m TaskPaneModel) Task(key string) (*TaskState, bool) {
	t, ok := m.tasks[key]
	return t, ok
}

// Len returns the number of listed tasks.
func (m TaskPaneModel) Len() int {
	return len(m.order)
}

func (m TaskPaneModel) selectedKey() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.order) {
		return m.order[m.selectedIdx]
	}
	return ""
}

func (m *TaskPaneModel) updateViewportContent() {
	task, ok := m.tasks[m.selectedKey()]
	if !ok {
		m.viewport.SetContent("Waiting for tasks...")
		return
	}

	m.viewport.SetContent(strings.Join(task.Output, "\n"))
	m.viewport.GotoBottom()
}

func (m *TaskPaneModel) resizeViewport() {
	m.viewport.Width = max(m.width-m.listWidth()-4, 10)
	m.viewport.Height = max(m.height-4, 5)
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
