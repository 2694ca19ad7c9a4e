package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/rgate/internal/config"
)

// SettingsPaneModel manages the settings form overlay.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.RGateConfig
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// Form field bindings
	saveTarget   string
	suiteDir     string
	buildTool    string
	java         string
	selector     string
	regenCommand string
	gnurPath     string
	fastrArgs    string
	gnurJIT      bool
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.RGateConfig, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
	}
	m.loadFromConfig()
	m.buildForm()
	return m
}

func (m *SettingsPaneModel) loadFromConfig() {
	m.saveTarget = "project"
	m.suiteDir = m.config.Suite.Dir
	m.buildTool = m.config.Suite.BuildTool
	m.java = m.config.Suite.Java
	m.selector = m.config.Tests.Selector
	m.regenCommand = m.config.Autogen.RegenCommand
	m.gnurPath = m.config.Bench.GnuRPath
	m.fastrArgs = strings.Join(m.config.Bench.FastRArgs, " ")
	m.gnurJIT = m.config.Bench.GnuRJIT
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Project (.rgate/config.json)", "project"),
					huh.NewOption("Global (~/.rgate/config.json)", "global"),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("suiteDir").
				Title("Suite Directory").
				Value(&m.suiteDir).
				Placeholder("."),

			huh.NewInput().
				Key("buildTool").
				Title("Build Tool").
				Value(&m.buildTool).
				Placeholder(config.DefaultBuildTool),

			huh.NewInput().
				Key("java").
				Title("Java Launcher").
				Value(&m.java).
				Placeholder(config.DefaultJava),

			huh.NewInput().
				Key("selector").
				Title("Default Test Selector").
				Value(&m.selector).
				Placeholder(config.DefaultSelector),

			huh.NewInput().
				Key("regenCommand").
				Title("Registry Regeneration Command").
				Value(&m.regenCommand).
				Placeholder(config.DefaultRegenCommand),
		).Title("Gate Settings"),

		huh.NewGroup(
			huh.NewInput().
				Key("fastrArgs").
				Title("FastR Benchmark Arguments").
				Value(&m.fastrArgs),

			huh.NewInput().
				Key("gnurPath").
				Title("GnuR Executable").
				Value(&m.gnurPath).
				Placeholder(config.DefaultGnuRPath),

			huh.NewConfirm().
				Key("gnurJIT").
				Title("Enable GnuR JIT").
				Value(&m.gnurJIT),
		).Title("Benchmark Settings"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == KeyEsc {
		m.visible = false
		m.saved = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.err = m.save()
		m.saved = m.err == nil
		if m.saved {
			m.visible = false
		}
	}

	return m, cmd
}

// save applies the form to the config, validates it and writes it to the
// selected target.
func (m *SettingsPaneModel) save() error {
	m.applyFormToConfig()
	if err := m.config.Validate(); err != nil {
		return err
	}
	return config.Save(m.config, m.targetPath())
}

func (m *SettingsPaneModel) targetPath() string {
	if m.saveTarget == "global" {
		return m.globalPath
	}
	return m.projectPath
}

// applyFormToConfig copies form field values back to the config struct.
func (m *SettingsPaneModel) applyFormToConfig() {
	m.config.Suite.Dir = strings.TrimSpace(m.suiteDir)
	m.config.Suite.BuildTool = strings.TrimSpace(m.buildTool)
	m.config.Suite.Java = strings.TrimSpace(m.java)
	m.config.Tests.Selector = strings.TrimSpace(m.selector)
	m.config.Autogen.RegenCommand = strings.TrimSpace(m.regenCommand)
	m.config.Bench.GnuRPath = strings.TrimSpace(m.gnurPath)
	m.config.Bench.FastRArgs = strings.Fields(m.fastrArgs)
	m.config.Bench.GnuRJIT = m.gnurJIT
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	switch {
	case m.err != nil:
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	default:
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane. Showing it reloads the form
// from the current config.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v {
		m.loadFromConfig()
		m.buildForm()
		if m.width > 0 {
			m.form.WithWidth(m.width - 8).WithHeight(m.height - 8)
		}
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}

// Saved reports whether the last form submission was written to disk.
func (m SettingsPaneModel) Saved() bool {
	return m.saved
}
