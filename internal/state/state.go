// Package state tracks migration progress across invocations. A full
// master migration is two separate runs split at the reboot boundary,
// so the backup artifact name and the completed-phase record have to
// survive the gap between them.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/nimplane/nimplane/internal/runner"
)

// StateFile is the filename for state tracking, written next to the
// plan in the working directory.
const StateFile = ".nimplane-state.json"

// State is the persisted cross-invocation record.
type State struct {
	Version         string           `json:"version"`
	ActiveMigration *ActiveMigration `json:"active_migration,omitempty"`

	path string
}

// ActiveMigration tracks a master migration between its two phases.
type ActiveMigration struct {
	ID              string    `json:"id"`
	PlanPath        string    `json:"plan_path"`
	MasterA         string    `json:"master_a"`
	MasterB         string    `json:"master_b"`
	BackupFile      string    `json:"backup_file,omitempty"`
	PhasesCompleted []string  `json:"phases_completed"`
	StartedAt       time.Time `json:"started_at"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Load reads the state file from the working directory, returning an
// empty state if none exists yet.
func Load() (*State, error) {
	return LoadFrom(StateFile)
}

// LoadFrom reads state from an explicit path.
func LoadFrom(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{Version: "1", path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	st.path = path
	return &st, nil
}

// Save writes the state atomically (temp file then rename).
func (s *State) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		return fmt.Errorf("saving state file: %w", err)
	}
	return nil
}

// StartMigration records a new active migration. Starting while one is
// already active is refused; the operator finishes or clears it first.
func (s *State) StartMigration(id, planPath, masterA, masterB string) error {
	if s.ActiveMigration != nil {
		return fmt.Errorf("another migration is already in progress (%s); run status or remove %s",
			s.ActiveMigration.ID, s.path)
	}
	now := time.Now()
	s.ActiveMigration = &ActiveMigration{
		ID:              id,
		PlanPath:        planPath,
		MasterA:         masterA,
		MasterB:         masterB,
		PhasesCompleted: []string{},
		StartedAt:       now,
		LastUpdated:     now,
	}
	return s.Save()
}

// CompletePhase records a finished phase and any backup artifact it
// produced.
func (s *State) CompletePhase(phase runner.Phase, backupFile string) error {
	if s.ActiveMigration == nil {
		return fmt.Errorf("no active migration")
	}
	if !slices.Contains(s.ActiveMigration.PhasesCompleted, phase.String()) {
		s.ActiveMigration.PhasesCompleted = append(s.ActiveMigration.PhasesCompleted, phase.String())
	}
	if backupFile != "" {
		s.ActiveMigration.BackupFile = backupFile
	}
	s.ActiveMigration.LastUpdated = time.Now()
	return s.Save()
}

// PhaseCompleted reports whether phase has been recorded complete.
func (s *State) PhaseCompleted(phase runner.Phase) bool {
	if s.ActiveMigration == nil {
		return false
	}
	return slices.Contains(s.ActiveMigration.PhasesCompleted, phase.String())
}

// CanExecutePhase enforces phase ordering: db_restore only runs after
// backup_and_migration has been recorded complete, and no phase runs
// twice.
func (s *State) CanExecutePhase(phase runner.Phase) error {
	if s.PhaseCompleted(phase) {
		return fmt.Errorf("phase %s has already completed", phase)
	}
	if phase == runner.PhaseDBRestore && !s.PhaseCompleted(runner.PhaseBackupAndMigration) {
		return fmt.Errorf("phase %s requires %s to have completed first", phase, runner.PhaseBackupAndMigration)
	}
	return nil
}

// Finish clears the active migration once both phases are done.
func (s *State) Finish() error {
	s.ActiveMigration = nil
	return s.Save()
}
