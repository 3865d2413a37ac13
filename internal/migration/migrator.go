// Package migration implements the two-phase NIM master migration: the
// outgoing master (B) is backed up, demoted to a standalone client of
// the orchestrating master (A), and migrated onto an alternate disk;
// after the reboot the operator re-invokes the tool to reinstall the
// master fileset on B and restore its database. The split at the reboot
// boundary is deliberate: a single run cannot trigger the reboot and
// safely continue past it without an operator checkpoint.
package migration

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nimplane/nimplane/internal/remote"
	"github.com/nimplane/nimplane/internal/runner"
	"github.com/nimplane/nimplane/internal/state"
	"github.com/nimplane/nimplane/internal/wait"
)

// Migrator runs one phase per invocation. It never rolls back completed
// steps and never retries; a failed step halts the phase with that
// step's diagnostic.
type Migrator struct {
	Runner   *runner.Runner
	Hosts    remote.HostSet
	Wait     wait.Strategy // applied after the alternate-disk migration reboot
	State    *state.State  // optional; nil skips cross-invocation tracking
	PlanPath string        // recorded in state so status can name the plan
	Out      io.Writer     // optional operator-facing messages
}

// Run executes the selected phase to completion or first failure.
func (m *Migrator) Run(ctx context.Context, phase runner.Phase, p *Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}

	switch phase {
	case runner.PhaseBackupAndMigration:
		return m.runBackupAndMigration(ctx, p)
	case runner.PhaseDBRestore:
		return m.runDBRestore(ctx, p)
	default:
		return fmt.Errorf("unknown phase %q", phase)
	}
}

func (m *Migrator) runBackupAndMigration(ctx context.Context, p *Parameters) error {
	backup := p.ResolveBackupFile()

	// A dry run must leave the state file exactly as it found it.
	if m.State != nil && m.State.ActiveMigration == nil && !m.Runner.DryRun {
		id := fmt.Sprintf("%s_to_%s_%d", p.MasterB, p.MasterA, time.Now().Unix())
		if err := m.State.StartMigration(id, m.PlanPath, p.MasterA, p.MasterB); err != nil {
			return err
		}
	}

	steps := BackupPhaseSteps(p, m.Hosts)
	if _, err := m.Runner.Run(ctx, runner.PhaseBackupAndMigration, steps); err != nil {
		return err
	}
	if m.Runner.DryRun {
		return nil
	}

	if m.Wait != nil {
		m.printf("\n%s is rebooting onto %s; waiting (%s)...\n", p.MasterB, p.AltDisk, m.Wait.Describe())
		if err := m.Wait.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for %s to come back: %w", p.MasterB, err)
		}
	}

	if m.State != nil {
		if err := m.State.CompletePhase(runner.PhaseBackupAndMigration, backup); err != nil {
			return err
		}
	}

	m.printf("\n✅ Phase %s complete.\n", runner.PhaseBackupAndMigration)
	m.printf("Verify that %s rebooted onto the migrated disk, then re-run with --phase %s to restore its database.\n",
		p.MasterB, runner.PhaseDBRestore)
	return nil
}

func (m *Migrator) runDBRestore(ctx context.Context, p *Parameters) error {
	// Thread the artifact name recorded by phase one; the parameter is
	// only a fallback for runs without a state file.
	backup := p.ResolveBackupFile()
	if m.State != nil && m.State.ActiveMigration != nil && m.State.ActiveMigration.BackupFile != "" {
		backup = m.State.ActiveMigration.BackupFile
	}

	steps := RestorePhaseSteps(p, m.Hosts, backup)
	if _, err := m.Runner.Run(ctx, runner.PhaseDBRestore, steps); err != nil {
		return err
	}
	if m.Runner.DryRun {
		return nil
	}

	// A forced standalone restore has no active migration to record.
	if m.State != nil && m.State.ActiveMigration != nil {
		if err := m.State.CompletePhase(runner.PhaseDBRestore, ""); err != nil {
			return err
		}
		if err := m.State.Finish(); err != nil {
			return err
		}
	}

	m.printf("\n✅ Migration complete: %s is now a NIM master restored from %s.\n", p.MasterB, backup)
	return nil
}

func (m *Migrator) printf(format string, args ...any) {
	if m.Out != nil {
		fmt.Fprintf(m.Out, format, args...)
	}
}
