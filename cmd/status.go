package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimplane/nimplane/internal/config"
	"github.com/nimplane/nimplane/internal/history"
	"github.com/nimplane/nimplane/internal/runner"
	"github.com/nimplane/nimplane/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active migration and recent step history",
	Run:   runStatus,
}

var (
	statusHistory     int
	statusEnvironment string
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusHistory, "history", 0, "Also show the last N journaled steps")
	statusCmd.Flags().StringVar(&statusEnvironment, "environment", "", "Environment from nimplane.toml")
}

func runStatus(cmd *cobra.Command, args []string) {
	st, err := state.Load()
	if err != nil {
		log.Fatalf("Failed to load state: %v", err)
	}

	if st.ActiveMigration == nil {
		fmt.Println("No migration in progress.")
	} else {
		am := st.ActiveMigration
		fmt.Printf("Active migration: %s\n", am.ID)
		fmt.Printf("  Master A: %s\n", am.MasterA)
		fmt.Printf("  Master B: %s\n", am.MasterB)
		if am.BackupFile != "" {
			fmt.Printf("  Backup artifact: %s\n", am.BackupFile)
		}
		if len(am.PhasesCompleted) == 0 {
			fmt.Printf("  Phases completed: none\n")
		} else {
			fmt.Printf("  Phases completed: %s\n", strings.Join(am.PhasesCompleted, ", "))
		}
		fmt.Printf("  Started: %s\n", am.StartedAt.Format("2006-01-02 15:04:05"))
		if st.PhaseCompleted(runner.PhaseBackupAndMigration) && !st.PhaseCompleted(runner.PhaseDBRestore) {
			fmt.Printf("\nNext: nimplane migrate %s --phase db-restore\n", am.PlanPath)
		}
	}

	if statusHistory > 0 {
		showHistory(statusHistory)
	}
}

func showHistory(limit int) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	env, err := config.ResolveEnvironment(cfg, statusEnvironment)
	if err != nil {
		log.Fatalf("Failed to resolve environment: %v", err)
	}

	ctx := context.Background()
	journal, err := history.Open(ctx, env.HistoryURL)
	if err != nil {
		log.Fatalf("Failed to open history journal: %v", err)
	}
	defer func() { _ = journal.Close() }()

	records, err := journal.RecentSteps(ctx, limit)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	fmt.Printf("\nRecent steps:\n")
	for _, rec := range records {
		status := "ok"
		if rec.ExitCode != 0 {
			status = fmt.Sprintf("exit %d", rec.ExitCode)
		}
		fmt.Printf("  %s  [%s] %s on %s: %s\n",
			rec.FinishedAt.Format("2006-01-02 15:04:05"), rec.Phase, rec.StepLabel, rec.Host, status)
	}
}
