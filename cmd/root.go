package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nimplane",
	Short: "Nimplane orchestrates NIM administrative workflows across an AIX fleet.",
	Long: `Nimplane orchestrates NIM administrative workflows across an AIX fleet:
precondition validation, two-phase NIM master migration, and live
kernel updates, delegating every step to the affected hosts over SSH.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
