package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "themis",
	Short: "Themis - decision and readiness evaluation engine",
	Long: `Themis is a decision and readiness evaluation engine for regulated
onboarding and token launch workflows.

It provides:
  - Policy rule evaluation over collected evidence
  - Immutable compliance decisions with idempotent creation and supersession
  - Multi-category launch readiness aggregation with remediation guidance
  - Jurisdiction rule set evaluation`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
