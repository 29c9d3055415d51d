package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis/analyzers"
)

var analyzersCmd = &cobra.Command{
	Use:   "analyzers",
	Short: "List registered analyzers and their statuses",
	RunE: func(_ *cobra.Command, _ []string) error {
		_, logger, err := loadConfigAndLogger()
		if err != nil {
			return err
		}

		registry := analysis.NewRegistry(analyzers.Registrations(), logger)

		standard := make(map[string]bool, len(analysis.StandardAnalyzers))
		for _, id := range analysis.StandardAnalyzers {
			standard[id] = true
		}

		fmt.Printf("%-24s %-10s %-8s %s\n", "ID", "STATUS", "LEVEL", "TAGS")
		for _, d := range registry.Descriptors() {
			level := "-"
			switch {
			case standard[d.ID]:
				level = "standard"
			case d.Status == analysis.StatusActive:
				level = "detailed"
			}
			line := fmt.Sprintf("%-24s %-10s %-8s %s", d.ID, d.Status, level, strings.Join(d.Tags, ","))
			if d.Err != "" {
				line += "  (" + d.Err + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzersCmd)
}
