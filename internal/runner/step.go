package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/nimplane/nimplane/internal/remote"
)

// Phase selects which ordered step list a migration invocation executes.
// A full migration is two invocations, one per phase, split at the
// reboot of the outgoing master.
type Phase string

const (
	PhaseBackupAndMigration Phase = "backup_and_migration"
	PhaseDBRestore          Phase = "db_restore"
)

// ParsePhase accepts both the canonical underscore form and the
// flag-friendly dashed form.
func ParsePhase(s string) (Phase, error) {
	switch strings.ReplaceAll(strings.TrimSpace(s), "-", "_") {
	case string(PhaseBackupAndMigration):
		return PhaseBackupAndMigration, nil
	case string(PhaseDBRestore):
		return PhaseDBRestore, nil
	case "":
		return "", &ConfigurationError{Parameter: "phase"}
	}
	return "", fmt.Errorf("unknown phase %q (want %s or %s)", s, PhaseBackupAndMigration, PhaseDBRestore)
}

func (p Phase) String() string { return string(p) }

// Predicate decides whether a step's captured result counts as success.
// A nil return is success.
type Predicate func(remote.Result) error

// ExitZero is the default predicate: the command must exit 0.
func ExitZero() Predicate {
	return func(r remote.Result) error {
		if r.ExitCode != 0 {
			return fmt.Errorf("exit %d", r.ExitCode)
		}
		return nil
	}
}

// OutputContains requires substr in stdout or stderr, in addition to a
// zero exit.
func OutputContains(substr string) Predicate {
	return func(r remote.Result) error {
		if r.ExitCode != 0 {
			return fmt.Errorf("exit %d", r.ExitCode)
		}
		if !strings.Contains(r.Stdout, substr) && !strings.Contains(r.Stderr, substr) {
			return fmt.Errorf("output does not contain %q", substr)
		}
		return nil
	}
}

// OutputLacks requires substr to be absent from stdout and stderr.
func OutputLacks(substr string) Predicate {
	return func(r remote.Result) error {
		if strings.Contains(r.Stdout, substr) || strings.Contains(r.Stderr, substr) {
			return fmt.Errorf("output contains %q", substr)
		}
		return nil
	}
}

// Step is one ordered unit of work delegated to a host. Host may name
// any machine in the fleet, not just the one the workflow was invoked
// against.
type Step struct {
	Label    string
	Host     string
	Command  string
	Check    Predicate // nil means ExitZero
	Mutating bool
}

// StepResult is the captured outcome of one executed step.
type StepResult struct {
	Step     Step
	Result   remote.Result
	Changed  bool
	Started  time.Time
	Finished time.Time
}
