package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jairodriguez/autonomica/internal/config"
	"github.com/jairodriguez/autonomica/pkg/models"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List the configured workers",
	Long: `List the workers declared in workers.yaml.

Each worker declares a role, the tools it can use, and the model it runs
on. The matcher scores workers against a task's required tools, role
preference, and description overlap; edits to workers.yaml are picked up
live during a run.`,
	RunE: runWorkers,
}

func runWorkers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	workers, err := config.LoadWorkersOrDefault(cfg.WorkersFile)
	if err != nil {
		return fmt.Errorf("loading workers: %w", err)
	}

	source := cfg.WorkersFile
	if _, err := os.Stat(cfg.WorkersFile); os.IsNotExist(err) {
		source = "built-in defaults (run 'autonomica config init' to customize)"
	}

	fmt.Printf("Workers (%d) from %s:\n\n", len(workers), source)
	for _, w := range workers {
		fmt.Printf("  %s %s (%s)\n", workerDot(w.Status), w.Name, w.Role)
		model := w.Model
		if model == "" {
			model = cfg.Provider.Model + " (default)"
		}
		fmt.Printf("      id: %s  model: %s\n", w.ID, model)
		if len(w.Tools) > 0 {
			fmt.Printf("      tools: %s\n", strings.Join(w.Tools, ", "))
		}
		if w.Description != "" {
			fmt.Printf("      %s\n", w.Description)
		}
		fmt.Println()
	}
	return nil
}

func workerDot(status models.WorkerStatus) string {
	switch status {
	case models.WorkerStatusBusy:
		return color.YellowString("●")
	case models.WorkerStatusOffline:
		return color.RedString("●")
	default:
		return color.GreenString("●")
	}
}
