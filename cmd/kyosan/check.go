package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/pipeline"
)

var checkFlags struct {
	level    string
	generate bool
	jsonOut  bool
}

var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Run one text through the pipeline without a server",
	Long: `Evaluate one text through the full pipeline: the policy gate,
the analyzers at the requested level, and optionally the generation call.

Text is taken from the argument, or from stdin when no argument is given.

Examples:
  kyosan check "What are the principles of responsible AI?"
  echo "some input" | kyosan check --level detailed
  kyosan check --generate --json "Explain how tides work"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.level, "level", "", "analysis level (basic, standard, detailed)")
	checkCmd.Flags().BoolVar(&checkFlags.generate, "generate", false, "call the external generation provider")
	checkCmd.Flags().BoolVar(&checkFlags.jsonOut, "json", false, "print the full response as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := checkInput(args)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	if checkFlags.generate && !cfg.Generation.Enabled {
		return fmt.Errorf("--generate requires generation to be enabled (set KYOSAN_GENERATION_ENABLED and an API key)")
	}

	eng, err := buildEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	resp := eng.pipeline.Process(cmd.Context(), &pipeline.Request{
		Text:          text,
		Level:         checkFlags.level,
		UseGeneration: checkFlags.generate,
	})

	if checkFlags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Printf("status: %s\n", resp.Status)
	fmt.Printf("state:  %s\n", resp.State)
	fmt.Printf("level:  %s\n", resp.Level)
	if resp.Status.Blocked() {
		record := resp.Compliance
		if resp.PostCompliance != nil && !resp.PostCompliance.OverallCompliant {
			record = resp.PostCompliance
		}
		fmt.Printf("layer:  %s (%s)\n", record.BlockingLayer, record.Reason)
	}
	if len(resp.Analysis) > 0 {
		ok := 0
		for _, r := range resp.Analysis {
			if r.OK {
				ok++
			}
		}
		fmt.Printf("analysis: %d/%d analyzers succeeded\n", ok, len(resp.Analysis))
	}
	fmt.Printf("\n%s\n", resp.Text)
	return nil
}

func checkInput(args []string) (string, error) {
	if len(args) == 1 {
		text := strings.TrimSpace(args[0])
		if text == "" {
			return "", fmt.Errorf("text argument is empty")
		}
		return text, nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("no input text: pass an argument or pipe text on stdin")
	}
	return text, nil
}
