package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimplane/nimplane/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate plan files",
	Long: `Validate migration plan files against the plan schema.

Subcommands:
  plan - Validate a migration plan JSON file`,
	Example: `  # Validate a migration plan
  nimplane validate plan migration-plan.json

  # Validate with JSON output (for IDE integration)
  nimplane validate plan --format json migration-plan.json`,
}

var validatePlanCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Validate a migration plan JSON file",
	Long:  `Validate a migration plan JSON file for correctness and completeness.`,
	Args:  cobra.ExactArgs(1),
	Run:   runValidatePlan,
}

var validateFormat string

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.AddCommand(validatePlanCmd)

	validatePlanCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format: text or json")
}

func runValidatePlan(cmd *cobra.Command, args []string) {
	path := args[0]

	result, err := plan.Validate(path)
	if err != nil {
		log.Fatalf("Failed to validate plan: %v", err)
	}

	if validateFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(jsonBytes))
		if !result.Valid {
			os.Exit(1)
		}
		return
	}

	if !result.Valid {
		fmt.Fprintf(os.Stderr, "✗ Plan validation failed: %s\n\n", path)
		for _, issue := range result.Issues {
			fmt.Fprintf(os.Stderr, "  %s\n", issue.Message)
		}
		os.Exit(1)
	}
	fmt.Printf("✅ %s is a valid migration plan\n", path)
}
