package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimplane/nimplane/internal/config"
	"github.com/nimplane/nimplane/internal/lku"
	"github.com/nimplane/nimplane/internal/remote"
)

var lkuCmd = &cobra.Command{
	Use:   "lku <host>",
	Short: "Run a live kernel update on a host",
	Long: `Run the AIX Live Kernel Update workflow on a host.

Preview mode reports what the update would do and stops without
changing anything. Apply mode authenticates against the managing HMC
first; if authentication fails the host is skipped (a soft stop, not an
error) exactly as the batch workflow behaves, and the skip is reported
so it cannot be mistaken for success.`,
	Example: `  # See what a live update would do
  nimplane lku lpar7 --mode preview

  # Apply, authenticating to the HMC
  nimplane lku lpar7 --mode apply --hmc hmc01 --hmc-user hscroot --hmc-password-env HMC_PASSWORD`,
	Args: cobra.ExactArgs(1),
	Run:  runLKU,
}

var (
	lkuMode        string
	lkuEnvironment string
	lkuHMC         string
	lkuHMCUser     string
	lkuHMCPassEnv  string
)

func init() {
	rootCmd.AddCommand(lkuCmd)

	lkuCmd.Flags().StringVar(&lkuMode, "mode", "preview", "Mode: preview or apply")
	lkuCmd.Flags().StringVar(&lkuEnvironment, "environment", "", "Environment from nimplane.toml")
	lkuCmd.Flags().StringVar(&lkuHMC, "hmc", "", "HMC address (apply mode)")
	lkuCmd.Flags().StringVar(&lkuHMCUser, "hmc-user", "", "HMC user (apply mode)")
	lkuCmd.Flags().StringVar(&lkuHMCPassEnv, "hmc-password-env", "HMC_PASSWORD",
		"Environment variable holding the HMC password")
}

func runLKU(cmd *cobra.Command, args []string) {
	host := args[0]

	mode, err := lku.ParseMode(lkuMode)
	if err != nil {
		log.Fatalf("Invalid --mode: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	env, err := config.ResolveEnvironment(cfg, lkuEnvironment)
	if err != nil {
		log.Fatalf("Failed to resolve environment: %v", err)
	}

	sshExec := remote.NewSSHExecutor(env.Hosts)
	defer func() { _ = sshExec.Close() }()

	r := &lku.Runner{Exec: sshExec, Out: os.Stdout}
	outcome, err := r.Run(context.Background(), lku.Options{
		Host:        host,
		Mode:        mode,
		HMC:         lkuHMC,
		HMCUser:     lkuHMCUser,
		HMCPassword: os.Getenv(lkuHMCPassEnv),
	})
	if err != nil {
		log.Fatalf("Live kernel update halted: %v", err)
	}

	if outcome.Kind == lku.OutcomeSoftStopped {
		fmt.Printf("⏹  %s\n", outcome.Message)
	}
}
