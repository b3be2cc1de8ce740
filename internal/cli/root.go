// Package cli implements the fare command-line interface using Cobra.
// Each subcommand is an operator tool: serve, seed, stats, reconcile.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fare",
	Short: "Fare, the social dining gamification engine",
	Long: `Fare is the gamification backend for the SharedTable dining app.
It keeps the points ledger, tiers, achievements, quests, streaks,
leaderboards, and the loyalty shop behind one HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
