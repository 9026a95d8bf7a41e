package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jairodriguez/autonomica/internal/state"
	"github.com/jairodriguez/autonomica/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workflow run history",
	Long: `Display active and recent workflow runs from the local database.

Shows:
  - Workflows still marked in progress
  - Recent completed, failed, and cancelled runs with cost
  - Recent resource negotiations and their outcomes

The project database (.autonomica/state.db) is preferred; the global
database is used when no project history exists.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Try the project database first, then global.
	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No run history. Run 'autonomica run <workflow.yaml>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	active, err := db.ActiveWorkflows()
	if err != nil {
		return fmt.Errorf("list active workflows: %w", err)
	}

	if len(active) == 0 {
		fmt.Println("No active workflows.")
	} else {
		fmt.Printf("Active Workflows (%d):\n", len(active))
		for i := range active {
			displayActiveWorkflow(db, &active[i])
		}
	}

	fmt.Println()
	if err := displayRecentRuns(db); err != nil {
		return err
	}
	return displayRecentNegotiations(db)
}

func displayActiveWorkflow(db *state.DB, wf *models.WorkflowExecution) {
	completed, total := 0, 0
	if tasks, err := db.ListWorkflowTasks(wf.ID); err == nil {
		total = len(tasks)
		for _, t := range tasks {
			if t.Status == models.TaskStatusCompleted {
				completed++
			}
		}
	}

	age := formatDuration(time.Since(wf.CreatedAt))
	fmt.Printf("  %s: \"%s\" %d/%d tasks, $%.4f (%s ago)\n",
		wf.ID, wf.Name, completed, total, wf.TotalCost, age)
}

func displayRecentRuns(db *state.DB) error {
	recent, err := db.ListRecentWorkflows(20)
	if err != nil {
		return fmt.Errorf("list recent workflows: %w", err)
	}

	var terminal []models.WorkflowExecution
	for _, wf := range recent {
		if wf.Status.Terminal() {
			terminal = append(terminal, wf)
			if len(terminal) >= 5 {
				break
			}
		}
	}
	if len(terminal) == 0 {
		return nil
	}

	fmt.Println("Recent Runs:")
	for _, wf := range terminal {
		age := formatDuration(time.Since(wf.CreatedAt))
		fmt.Printf("  %s: %s, %s, $%.4f (%s ago)\n",
			wf.ID, wf.Name, statusLabel(wf.Status), wf.TotalCost, age)
	}
	return nil
}

func displayRecentNegotiations(db *state.DB) error {
	negotiations, err := db.ListRecentNegotiations(5)
	if err != nil {
		return fmt.Errorf("list recent negotiations: %w", err)
	}
	if len(negotiations) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("Recent Negotiations:")
	for _, n := range negotiations {
		outcome := n.Resolution
		if outcome == "" {
			outcome = n.FailureReason
		}
		if outcome == "" {
			outcome = string(n.Status)
		}
		fmt.Printf("  %s on %s: %s\n", n.ID, n.ResourceID, outcome)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
