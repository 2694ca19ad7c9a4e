package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/rgate/internal/config"
	"github.com/aristath/rgate/internal/events"
)

func TestTaskPane_PhaseLifecycle(t *testing.T) {
	m := NewTaskPaneModel()
	m.SetSize(100, 20)

	m, _ = m.Update(events.PhaseStartedEvent{Name: "Project build", Fatal: true, Timestamp: time.Now()})
	m, _ = m.Update(events.PhaseOutputEvent{Name: "Project build", Line: "Compiling..."})
	m, _ = m.Update(events.PhaseFailedEvent{Name: "Project build", Err: errors.New("exit status 2"), Fatal: true})

	task, ok := m.Task(phaseKey("Project build"))
	if !ok {
		t.Fatal("Expected phase to be listed")
	}
	if task.Status != StatusFailed {
		t.Errorf("Expected status failed, got %s", task.Status)
	}
	if !task.Fatal {
		t.Error("Expected fatal flag to be kept")
	}
	if task.Output[0] != "Compiling..." {
		t.Errorf("Expected output line to be recorded, got %v", task.Output)
	}
	if !strings.Contains(task.Output[len(task.Output)-1], "exit status 2") {
		t.Errorf("Expected failure note, got %q", task.Output[len(task.Output)-1])
	}
}

func TestTaskPane_OutputForUnknownPhaseIgnored(t *testing.T) {
	m := NewTaskPaneModel()
	m, _ = m.Update(events.PhaseOutputEvent{Name: "nope", Line: "x"})
	if m.Len() != 0 {
		t.Errorf("Expected no tasks, got %d", m.Len())
	}
}

func TestTaskPane_BenchmarkNeverStarted(t *testing.T) {
	m := NewTaskPaneModel()

	m, _ = m.Update(events.BenchmarkCompletedEvent{ID: "missing", Outcome: "not-found", ExitCode: 1})
	m, _ = m.Update(events.BenchmarkCompletedEvent{ID: "skipped", Outcome: "unavailable", ExitCode: 1})

	if m.Len() != 2 {
		t.Fatalf("Expected 2 tasks, got %d", m.Len())
	}
	missing, _ := m.Task(benchKey("missing"))
	if missing.Status != StatusFailed {
		t.Errorf("Expected not-found benchmark to show as failed, got %s", missing.Status)
	}
	skipped, _ := m.Task(benchKey("skipped"))
	if skipped.Status != StatusSkipped {
		t.Errorf("Expected unavailable benchmark to show as skipped, got %s", skipped.Status)
	}
}

func TestTaskPane_Selection(t *testing.T) {
	m := NewTaskPaneModel()
	m.SetSize(100, 20)
	m.SetFocused(true)

	for _, name := range []string{"a", "b", "c"} {
		m, _ = m.Update(events.PhaseStartedEvent{Name: name})
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if got := m.selectedKey(); got != phaseKey("c") {
		t.Errorf("Expected selection to stop at last task, got %s", got)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	if got := m.selectedKey(); got != phaseKey("b") {
		t.Errorf("Expected selection to move up, got %s", got)
	}
}

func TestProgressPane(t *testing.T) {
	m := NewProgressPaneModel()
	m.SetSize(80, 12)

	m, _ = m.Update(events.GateProgressEvent{Total: 7, Passed: 3, Failed: 1, Pending: 3, Aborted: true})
	m, _ = m.Update(events.BenchmarkCompletedEvent{Outcome: "passed"})
	m, _ = m.Update(events.BenchmarkCompletedEvent{Outcome: "failed"})
	m, _ = m.Update(events.BenchmarkCompletedEvent{Outcome: "unavailable"})

	if m.passed != 3 || m.failed != 1 || m.pending != 3 || !m.aborted {
		t.Errorf("Unexpected gate counts: %+v", m)
	}
	if m.benchPassed != 1 || m.benchFailed != 1 || m.benchSkipped != 1 {
		t.Errorf("Unexpected bench counts: %d/%d/%d", m.benchPassed, m.benchFailed, m.benchSkipped)
	}

	view := m.View()
	if !strings.Contains(view, "Gate aborted") {
		t.Errorf("Expected aborted marker in view, got:\n%s", view)
	}
}

func TestModel_BusClosedMarksDone(t *testing.T) {
	bus := events.NewEventBus()
	m := New(bus, config.DefaultConfig(), "", "")

	bus.Publish(events.TopicPhase, events.PhaseStartedEvent{Name: "Copyright check"})
	bus.Close()

	cmd := m.Init()
	msg := cmd()
	if _, ok := msg.(events.PhaseStartedEvent); !ok {
		t.Fatalf("Expected PhaseStartedEvent first, got %T", msg)
	}

	updated, _ := m.Update(msg)
	m = updated.(Model)

	msg = waitForEvent(m.eventSub)()
	if _, ok := msg.(busClosedMsg); !ok {
		t.Fatalf("Expected busClosedMsg after close, got %T", msg)
	}
	updated, _ = m.Update(msg)
	m = updated.(Model)

	if !m.Done() {
		t.Error("Expected model to be done after the bus closed")
	}
	if m.taskPane.Len() != 1 {
		t.Errorf("Expected 1 task, got %d", m.taskPane.Len())
	}
}

func TestModel_FocusCycling(t *testing.T) {
	m := New(events.NewEventBus(), config.DefaultConfig(), "", "")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.focusedPane != PaneProgress {
		t.Errorf("Expected progress pane focus, got %d", m.focusedPane)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = updated.(Model)
	if m.focusedPane != PaneTasks {
		t.Errorf("Expected task pane focus, got %d", m.focusedPane)
	}
}

func TestModel_Quit(t *testing.T) {
	m := New(events.NewEventBus(), config.DefaultConfig(), "", "")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if updated.View() != "Goodbye!\n" {
		t.Errorf("Expected goodbye view, got %q", updated.View())
	}
}

func TestSettingsPane_SaveWritesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, ".rgate", "config.json")
	cfg := config.DefaultConfig()

	m := NewSettingsPaneModel(cfg, filepath.Join(dir, "global.json"), projectPath)
	m.suiteDir = " /work/fastr "
	m.fastrArgs = "--DisableGroupGenerics  --Xmx4g"
	m.gnurJIT = true

	if err := m.save(); err != nil {
		t.Fatalf("Expected save to succeed, got: %v", err)
	}

	if cfg.Suite.Dir != "/work/fastr" {
		t.Errorf("Expected trimmed suite dir, got %q", cfg.Suite.Dir)
	}
	if len(cfg.Bench.FastRArgs) != 2 || cfg.Bench.FastRArgs[1] != "--Xmx4g" {
		t.Errorf("Expected split FastR args, got %v", cfg.Bench.FastRArgs)
	}
	if !cfg.Bench.GnuRJIT {
		t.Error("Expected GnuR JIT to be enabled")
	}

	loaded, err := config.Load("", projectPath)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.Suite.Dir != "/work/fastr" {
		t.Errorf("Expected saved suite dir, got %q", loaded.Suite.Dir)
	}
}

func TestSettingsPane_InvalidConfigNotSaved(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "config.json")

	m := NewSettingsPaneModel(config.DefaultConfig(), "", projectPath)
	m.java = "   "

	if err := m.save(); err == nil {
		t.Fatal("Expected validation error for empty java launcher")
	}
	if _, err := os.Stat(projectPath); !os.IsNotExist(err) {
		t.Errorf("Expected no config file to be written, stat err: %v", err)
	}
}
