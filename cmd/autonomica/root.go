package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jairodriguez/autonomica/internal/config"
)

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "autonomica",
	Short: "Workforce orchestration for AI worker agents",
	Long: `Autonomica coordinates a workforce of AI worker agents over shared
resources. A workflow is a dependency graph of tasks: autonomica validates
the graph, assigns each task to the best-scoring worker, accounts every
token and worker slot in a resource ledger, and settles contention through
negotiation instead of deadlock.

Getting started:
  autonomica config init          # write .autonomica.yaml and workers.yaml
  autonomica run workflow.yaml    # execute a workflow
  autonomica run workflow.yaml --watch --dry-run

Workers are declared in workers.yaml and reloaded live while a run is in
progress. Run history lands in a local sqlite database readable with
'autonomica status'.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: .autonomica.yaml, then user config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Write debug traces under .autonomica/logs/")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration, honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromPath(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", configPath, err)
		}
		return cfg, nil
	}
	return config.Load()
}
