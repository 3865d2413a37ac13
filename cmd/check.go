package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimplane/nimplane/internal/config"
	"github.com/nimplane/nimplane/internal/precheck"
	"github.com/nimplane/nimplane/internal/remote"
	"github.com/nimplane/nimplane/internal/runner"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the preconditions for an alternate disk migration",
	Long: `Run the read-only precondition battery for an alternate disk
migration against a target/master pair. The checks run in a fixed order
and stop at the first failure; nothing is mutated, so the command is
safe to re-run.`,
	Example: `  # Validate that nim-client-7 can be migrated via nim-master
  nimplane check --target nim-client-7 --master nim-master

  # Reproduce the historical substring hostname comparison
  nimplane check --target nim-client-7 --master nim-master --loose-match`,
	Run: runCheck,
}

var (
	checkTarget      string
	checkMaster      string
	checkEnvironment string
	checkLooseMatch  bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkTarget, "target", "", "Host to be migrated")
	checkCmd.Flags().StringVar(&checkMaster, "master", "", "NIM master coordinating the migration")
	checkCmd.Flags().StringVar(&checkEnvironment, "environment", "", "Environment from nimplane.toml")
	checkCmd.Flags().BoolVar(&checkLooseMatch, "loose-match", false,
		"Compare the niminfo master by substring instead of exact host name")
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	env, err := config.ResolveEnvironment(cfg, checkEnvironment)
	if err != nil {
		log.Fatalf("Failed to resolve environment: %v", err)
	}

	sshExec := remote.NewSSHExecutor(env.Hosts)
	defer func() { _ = sshExec.Close() }()

	v := &precheck.Validator{
		Exec:       sshExec,
		Out:        os.Stdout,
		LooseMatch: checkLooseMatch,
	}

	fmt.Printf("Checking migration preconditions for %s via %s:\n", checkTarget, checkMaster)
	report, err := v.Validate(context.Background(), checkTarget, checkMaster)
	if err != nil {
		var violation *runner.PreconditionViolation
		if errors.As(err, &violation) {
			fmt.Fprintf(os.Stderr, "\n✗ %v\n", violation)
			os.Exit(1)
		}
		log.Fatalf("Check failed: %v", err)
	}

	fmt.Printf("\n✅ All preconditions satisfied for %s.\n", report.Target)
	if !report.Registered {
		fmt.Printf("Note: %s is not yet registered on %s; the migration will define it first.\n",
			report.Target, report.Master)
	}
}
