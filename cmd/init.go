package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimplane/nimplane/internal/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new nimplane config and migration plan",
	Long:  `Interactively create nimplane.toml and a starter migration plan in the current directory.`,
	Run:   runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite existing nimplane.toml and plan files")
}

func runInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	if err := wizard.Run(force); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
