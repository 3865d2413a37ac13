// Package wizard is the interactive `nimplane init` flow: it collects
// the fleet hosts and migration parameters and writes nimplane.toml
// plus a starter migration plan.
package wizard

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// New creates a new wizard model
func New(force bool) WizardModel {
	return WizardModel{
		state:  StateWelcome,
		force:  force,
		errors: make(map[string]string),
		inputs: []textinput.Model{},
	}
}

// Run starts the wizard and blocks until it finishes.
func Run(force bool) error {
	if !force {
		if _, err := os.Stat("nimplane.toml"); err == nil {
			return fmt.Errorf("nimplane.toml already exists (use --force to overwrite)")
		}
	}

	p := tea.NewProgram(New(force))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(WizardModel); ok && m.err != nil {
		return m.err
	}
	return nil
}

// Init implements tea.Model.
func (m WizardModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab", "shift+tab", "up", "down":
			return m.handleFocus(msg.String())

		default:
			return m.handleTextInput(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case fileCreationResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.result = msg.result
		m.state = StateDone
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m WizardModel) View() string {
	switch m.state {
	case StateWelcome:
		return m.renderWelcome()
	case StateEnvironmentName, StateMasters, StateMigrationDetails:
		return m.renderInputs()
	case StateSummary:
		return m.renderSummary()
	case StateCreating:
		return "Writing files...\n"
	case StateDone:
		return m.renderDone()
	case StateError:
		return m.renderError()
	default:
		return "Unknown state"
	}
}

func (m WizardModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateWelcome:
		m.state = StateEnvironmentName
		m.setupInputs([]inputSpec{
			{key: "name", label: "Environment name", placeholder: "production", value: "production"},
		})
		return m, textinput.Blink

	case StateEnvironmentName:
		if m.focusIndex < len(m.inputs)-1 {
			return m.advanceFocus()
		}
		m.env.Name = m.inputValue(0, "production")
		m.state = StateMasters
		m.setupInputs([]inputSpec{
			{key: "master_a", label: "Master A name", placeholder: "nim-master-a"},
			{key: "master_a_addr", label: "Master A address", placeholder: "10.0.0.10"},
			{key: "master_b", label: "Master B name (host being migrated)", placeholder: "nim-master-b"},
			{key: "master_b_addr", label: "Master B address", placeholder: "10.0.0.11"},
			{key: "ssh_user", label: "SSH user", placeholder: "root", value: "root"},
			{key: "identity_file", label: "SSH identity file", placeholder: "~/.ssh/id_rsa", value: "~/.ssh/id_rsa"},
		})
		return m, textinput.Blink

	case StateMasters:
		if m.focusIndex < len(m.inputs)-1 {
			return m.advanceFocus()
		}
		m.env.MasterA = m.inputValue(0, "")
		m.env.MasterAAddr = m.inputValue(1, m.env.MasterA)
		m.env.MasterB = m.inputValue(2, "")
		m.env.MasterBAddr = m.inputValue(3, m.env.MasterB)
		m.env.SSHUser = m.inputValue(4, "root")
		m.env.IdentityFile = m.inputValue(5, "")
		if m.env.MasterA == "" || m.env.MasterB == "" {
			m.errors["masters"] = "both master names are required"
			return m, nil
		}
		delete(m.errors, "masters")
		m.state = StateMigrationDetails
		m.setupInputs([]inputSpec{
			{key: "alt_disk", label: "Alternate disk on master B", placeholder: "hdisk1"},
			{key: "lpp_source", label: "lpp_source resource", placeholder: "lpp_73"},
			{key: "spot", label: "SPOT resource", placeholder: "spot_73"},
			{key: "fileset_src", label: "Master fileset source path", placeholder: "/export/nim/master-fileset"},
			{key: "backup_file", label: "Backup file (optional)", placeholder: "/tmp/nimdb.backup"},
		})
		return m, textinput.Blink

	case StateMigrationDetails:
		if m.focusIndex < len(m.inputs)-1 {
			return m.advanceFocus()
		}
		m.env.AltDisk = m.inputValue(0, "")
		m.env.LppSource = m.inputValue(1, "")
		m.env.Spot = m.inputValue(2, "")
		m.env.FilesetSrc = m.inputValue(3, "")
		m.env.BackupFile = m.inputValue(4, "")
		if m.env.AltDisk == "" || m.env.LppSource == "" || m.env.Spot == "" || m.env.FilesetSrc == "" {
			m.errors["details"] = "alternate disk, lpp_source, SPOT and fileset source are all required"
			return m, nil
		}
		delete(m.errors, "details")
		m.state = StateSummary
		return m, nil

	case StateSummary:
		m.state = StateCreating
		return m, createFiles(m.env, m.force)

	case StateDone, StateError:
		return m, tea.Quit
	}
	return m, nil
}

func (m WizardModel) handleFocus(key string) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	switch key {
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex - 1 + len(m.inputs)) % len(m.inputs)
	}
	return m.refocus()
}

func (m WizardModel) advanceFocus() (tea.Model, tea.Cmd) {
	m.focusIndex++
	return m.refocus()
}

func (m WizardModel) refocus() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for i := range m.inputs {
		if i == m.focusIndex {
			cmds = append(cmds, m.inputs[i].Focus())
		} else {
			m.inputs[i].Blur()
		}
	}
	return m, tea.Batch(cmds...)
}

func (m WizardModel) handleTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focusIndex >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

type inputSpec struct {
	key         string
	label       string
	placeholder string
	value       string
}

func (m *WizardModel) setupInputs(specs []inputSpec) {
	m.inputs = make([]textinput.Model, len(specs))
	m.inputLabels = make([]string, len(specs))
	for i, spec := range specs {
		ti := textinput.New()
		ti.Placeholder = spec.placeholder
		ti.SetValue(spec.value)
		ti.CharLimit = 128
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
		m.inputLabels[i] = spec.label
	}
	m.focusIndex = 0
}

func (m WizardModel) inputValue(i int, fallback string) string {
	if i >= len(m.inputs) {
		return fallback
	}
	v := strings.TrimSpace(m.inputs[i].Value())
	if v == "" {
		return fallback
	}
	return v
}

// Rendering

func (m WizardModel) renderWelcome() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("nimplane init") + "\n\n")
	b.WriteString("This wizard writes nimplane.toml and a starter migration plan\n")
	b.WriteString("for a two-phase NIM master migration.\n")
	b.WriteString(helpStyle.Render("enter to continue · esc to quit"))
	return borderStyle.Render(b.String()) + "\n"
}

func (m WizardModel) renderInputs() string {
	var b strings.Builder
	switch m.state {
	case StateEnvironmentName:
		b.WriteString(headerStyle.Render("Environment") + "\n\n")
	case StateMasters:
		b.WriteString(headerStyle.Render("Fleet hosts") + "\n\n")
	case StateMigrationDetails:
		b.WriteString(headerStyle.Render("Migration parameters") + "\n\n")
	}
	for i, input := range m.inputs {
		b.WriteString(labelStyle.Render(m.inputLabels[i]) + "\n")
		b.WriteString(input.View() + "\n")
	}
	for _, msg := range m.errors {
		b.WriteString("\n" + errorStyle.Render("✗ "+msg) + "\n")
	}
	b.WriteString(helpStyle.Render("enter to advance · tab to move · esc to quit"))
	return borderStyle.Render(b.String()) + "\n"
}

func (m WizardModel) renderSummary() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Summary") + "\n\n")
	fmt.Fprintf(&b, "Environment:   %s\n", m.env.Name)
	fmt.Fprintf(&b, "Master A:      %s (%s)\n", m.env.MasterA, m.env.MasterAAddr)
	fmt.Fprintf(&b, "Master B:      %s (%s)\n", m.env.MasterB, m.env.MasterBAddr)
	fmt.Fprintf(&b, "Alt disk:      %s\n", m.env.AltDisk)
	fmt.Fprintf(&b, "lpp_source:    %s\n", m.env.LppSource)
	fmt.Fprintf(&b, "SPOT:          %s\n", m.env.Spot)
	fmt.Fprintf(&b, "Fileset src:   %s\n", m.env.FilesetSrc)
	b.WriteString(helpStyle.Render("enter to write files · esc to quit"))
	return borderStyle.Render(b.String()) + "\n"
}

func (m WizardModel) renderDone() string {
	var b strings.Builder
	b.WriteString(successStyle.Render("✅ Done") + "\n\n")
	if m.result != nil {
		fmt.Fprintf(&b, "Wrote %s and %s.\n", m.result.ConfigPath, m.result.PlanPath)
	}
	b.WriteString("Next: nimplane migrate migration-plan.json --phase backup-and-migration\n")
	b.WriteString(helpStyle.Render("enter to exit"))
	return borderStyle.Render(b.String()) + "\n"
}

func (m WizardModel) renderError() string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("✗ Failed") + "\n\n")
	if m.err != nil {
		b.WriteString(m.err.Error() + "\n")
	}
	b.WriteString(helpStyle.Render("enter to exit"))
	return borderStyle.Render(b.String()) + "\n"
}
