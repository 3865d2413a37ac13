package wizard

import (
	"github.com/charmbracelet/bubbles/textinput"
)

// WizardState represents the current step in the wizard flow
type WizardState int

const (
	StateWelcome WizardState = iota
	StateEnvironmentName
	StateMasters
	StateMigrationDetails
	StateSummary
	StateCreating
	StateDone
	StateError
)

// WizardModel holds the state for the Bubble Tea wizard
type WizardModel struct {
	state WizardState

	force bool

	// Environment being configured
	env EnvironmentInput

	// Input fields (using bubbletea textinput)
	inputs      []textinput.Model
	inputLabels []string
	focusIndex  int

	// Validation
	errors map[string]string

	// Final output
	result *InitResult
	err    error

	// Terminal dimensions
	width  int
	height int
}

// EnvironmentInput holds user input for the environment and its plan
type EnvironmentInput struct {
	Name string

	// Hosts
	MasterA      string
	MasterAAddr  string
	MasterB      string
	MasterBAddr  string
	SSHUser      string
	IdentityFile string

	// Migration plan parameters
	AltDisk    string
	LppSource  string
	Spot       string
	FilesetSrc string
	BackupFile string
}

// InitResult contains the outcome of running the wizard
type InitResult struct {
	ConfigPath    string
	ConfigCreated bool
	PlanPath      string
	PlanCreated   bool
}
