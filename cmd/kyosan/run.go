package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/config"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/server"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the engine's HTTP server",
	Long: `Start the HTTP server exposing the processing pipeline.

Examples:
  # Start with the default configuration
  kyosan run

  # Start with a custom config
  kyosan run --config /etc/kyosan/config.yaml

  # Override the listen address
  kyosan run --listen 0.0.0.0:9090

  # Validate the configuration without starting
  kyosan run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate configuration without starting the server")
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	ctx := cmd.Context()
	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if eng.pruner != nil {
		if err := eng.pruner.Start(ctx); err != nil {
			return fmt.Errorf("starting retention pruner: %w", err)
		}
	}

	srv, err := server.New(server.Options{
		Config:   cfg.Server,
		Pipeline: eng.pipeline,
		Registry: eng.registry,
		Store:    eng.conversations,
		Provider: eng.provider,
		Metrics:  eng.collector,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
