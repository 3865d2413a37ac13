package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nimplane/nimplane/internal/config"
	"github.com/nimplane/nimplane/internal/history"
	"github.com/nimplane/nimplane/internal/migration"
	"github.com/nimplane/nimplane/internal/plan"
	"github.com/nimplane/nimplane/internal/remote"
	"github.com/nimplane/nimplane/internal/runner"
	"github.com/nimplane/nimplane/internal/state"
	"github.com/nimplane/nimplane/internal/wait"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <plan-file>",
	Short: "Execute one phase of a NIM master migration",
	Long: `Execute one phase of a two-phase NIM master migration plan.

The migration reboots the outgoing master out of its master role, so a
single run cannot safely cross that boundary. Phase backup-and-migration
backs up the NIM database, demotes the master and migrates it onto the
alternate disk; once you have verified the reboot, a second invocation
with --phase db-restore reinstalls the master fileset and restores the
database.

Progress is tracked in .nimplane-state.json so db-restore cannot run
before backup-and-migration has completed.`,
	Example: `  # Phase one: back up, demote, migrate
  nimplane migrate migration-plan.json --phase backup-and-migration

  # After verifying the reboot, phase two: reinstall and restore
  nimplane migrate migration-plan.json --phase db-restore

  # Show the commands without running them
  nimplane migrate migration-plan.json --phase backup-and-migration --dry-run`,
	Args: cobra.ExactArgs(1),
	Run:  runMigrate,
}

var (
	migPhase        string
	migNext         bool
	migEnvironment  string
	migForce        bool
	migDryRun       bool
	migAutoApprove  bool
	migVerbose      bool
	migNoHistory    bool
	migWaitStrategy string
	migWaitSeconds  int
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migPhase, "phase", "", "Phase to execute: backup-and-migration or db-restore")
	migrateCmd.Flags().BoolVar(&migNext, "next", false, "Execute whichever phase the state file says comes next")
	migrateCmd.Flags().StringVar(&migEnvironment, "environment", "", "Environment from nimplane.toml (defaults to the plan's)")
	migrateCmd.Flags().BoolVar(&migForce, "force", false, "Skip the phase-ordering check (dangerous)")
	migrateCmd.Flags().BoolVar(&migDryRun, "dry-run", false, "Show what would be executed without touching any host")
	migrateCmd.Flags().BoolVar(&migAutoApprove, "auto-approve", false, "Do not prompt before executing")
	migrateCmd.Flags().BoolVarP(&migVerbose, "verbose", "v", false, "Show step output")
	migrateCmd.Flags().BoolVar(&migNoHistory, "no-history", false, "Disable the step history journal")
	migrateCmd.Flags().StringVar(&migWaitStrategy, "wait-strategy", "", "Post-reboot wait: fixed or poll (defaults from config)")
	migrateCmd.Flags().IntVar(&migWaitSeconds, "wait", 0, "Fixed wait in seconds (defaults from config)")
}

func runMigrate(cmd *cobra.Command, args []string) {
	planPath := args[0]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	p, err := plan.Load(planPath)
	if err != nil {
		log.Fatalf("Failed to load plan: %v", err)
	}

	envName := migEnvironment
	if envName == "" {
		envName = p.Environment
	}
	env, err := config.ResolveEnvironment(cfg, envName)
	if err != nil {
		log.Fatalf("Failed to resolve environment: %v", err)
	}

	st, err := state.Load()
	if err != nil {
		log.Fatalf("Failed to load state: %v", err)
	}

	phase, err := selectPhase(st)
	if err != nil {
		log.Fatalf("Invalid phase selection: %v", err)
	}

	if !migForce && !migDryRun {
		if err := st.CanExecutePhase(phase); err != nil {
			log.Fatalf("Cannot execute phase %s: %v\nUse --force to override (dangerous)", phase, err)
		}
	}

	params := p.MigrationParameters()
	// Fail the entry gate before any host is touched.
	if err := params.Validate(); err != nil {
		log.Fatalf("Invalid plan: %v", err)
	}

	fmt.Printf("\n")
	fmt.Printf("📋 NIM master migration: %s → client of %s\n", params.MasterB, params.MasterA)
	if p.Description != "" {
		fmt.Printf("%s\n", p.Description)
	}
	fmt.Printf("Environment: %s\n", env.Name)
	fmt.Printf("Phase: %s\n", phase)
	fmt.Printf("\n")

	if !migAutoApprove && !migDryRun {
		if !confirm(fmt.Sprintf("Execute phase %s against %s and %s?", phase, params.MasterA, params.MasterB)) {
			fmt.Println("Aborted.")
			return
		}
	}

	ctx := context.Background()

	sshExec := remote.NewSSHExecutor(env.Hosts)
	defer func() { _ = sshExec.Close() }()
	exec := remote.Mux{Local: remote.LocalExecutor{}, Remote: sshExec}

	var journal history.Journal = history.Nop{}
	if !migNoHistory && !migDryRun {
		journal, err = history.Open(ctx, env.HistoryURL)
		if err != nil {
			log.Fatalf("Failed to open history journal: %v", err)
		}
		defer func() { _ = journal.Close() }()
	}
	runID := fmt.Sprintf("%s_%d", phase, time.Now().Unix())

	run := &runner.Runner{
		Exec:     exec,
		Observer: &history.StepObserver{Journal: journal, RunID: runID},
		Out:      os.Stdout,
		DryRun:   migDryRun,
		Verbose:  migVerbose,
	}

	m := &migration.Migrator{
		Runner:   run,
		Hosts:    env.Hosts,
		Wait:     buildWaitStrategy(env, exec, params.MasterB),
		State:    st,
		PlanPath: planPath,
		Out:      os.Stdout,
	}

	if err := m.Run(ctx, phase, params); err != nil {
		log.Fatalf("Migration halted: %v", err)
	}
}

// selectPhase resolves --phase/--next into the phase to execute. --next
// consults the state file: phase one until it is recorded complete,
// then phase two.
func selectPhase(st *state.State) (runner.Phase, error) {
	if migNext {
		if migPhase != "" {
			return "", fmt.Errorf("--phase and --next are mutually exclusive")
		}
		if st.PhaseCompleted(runner.PhaseBackupAndMigration) {
			return runner.PhaseDBRestore, nil
		}
		return runner.PhaseBackupAndMigration, nil
	}
	return runner.ParsePhase(migPhase)
}

func buildWaitStrategy(env *config.ResolvedEnvironment, exec remote.Executor, host string) wait.Strategy {
	strategy := migWaitStrategy
	if strategy == "" {
		strategy = env.Wait.Strategy
	}

	if strategy == "poll" {
		return wait.Poll{
			Exec:     exec,
			Host:     host,
			Command:  env.Wait.PollCommand,
			Attempts: env.Wait.PollAttempts,
			Delay:    env.Wait.PollDelay(),
			Out:      os.Stdout,
		}
	}

	d := env.Wait.WaitDuration()
	if migWaitSeconds > 0 {
		d = time.Duration(migWaitSeconds) * time.Second
	}
	return wait.FixedDelay{Duration: d}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
