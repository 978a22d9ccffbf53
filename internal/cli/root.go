// Package cli provides the command-line interface for the allocation
// engine.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "allocengine",
	Short: "PM internship allocation engine",
	Long: `Allocengine matches internship candidates to openings in atomic batch
rounds: normalized feature vectors, weighted compatibility scoring,
reserved-seat quotas with a two-phase solver, and an append-only audit
ledger whose records are hash-chained for tamper evidence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}
