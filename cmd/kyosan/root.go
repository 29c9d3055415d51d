package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "kyosan",
	Short: "Kyosan Ethics Engine - compliance-gated text processing",
	Long: `Kyosan Ethics Engine runs free-text input through an ordered,
short-circuiting policy gate, a registry of advisory analyzers, and an
optional external generation call that is gated symmetrically on both
sides.

The gate is authoritative and fail-closed; analyzers are advisory and
fail-open; generation failures degrade to a local synthesizer.`,
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
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
}
