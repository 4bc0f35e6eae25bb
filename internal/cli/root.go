package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var objectivesPath string

// osExit is swapped out in tests covering non-zero exit paths.
var osExit = os.Exit

var rootCmd = &cobra.Command{
	Use:   "objectivegate",
	Short: "Objective-driven change verification gate",
	Long: "Verifies proposed software changes against a registry of weighted objectives:\n" +
		"predicts per-objective impact, generates and executes evidence-backed tests,\n" +
		"and issues signed verification certificates. Rejection, not review comments.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&objectivesPath, "objectives", "", "Path to objectives YAML (default ~/.objectivegate/objectives.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
