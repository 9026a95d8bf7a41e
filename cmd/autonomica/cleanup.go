package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jairodriguez/autonomica/internal/state"
)

var (
	cleanupForce  bool
	cleanupDryRun bool
	cleanupPurge  bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Settle interrupted workflows and purge old history",
	Long: `Clean up workflows a previous process never finished.

A workflow recorded as pending or in progress with no process running it
is interrupted: nothing will ever advance it again. Cleanup marks such
workflows failed and fails their open tasks so status output stays honest.

With --purge, terminal workflows older than 30 days are deleted from the
history database.

Examples:
  autonomica cleanup              # Interactive cleanup with confirmation
  autonomica cleanup --force      # Skip confirmation prompt
  autonomica cleanup --dry-run    # Show what would be cleaned
  autonomica cleanup --purge      # Also purge runs older than 30 days`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be cleaned without changing anything")
	cleanupCmd.Flags().BoolVar(&cleanupPurge, "purge", false, "Purge terminal workflows older than 30 days")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No run history database found. Nothing to clean.")
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

	recovery := state.NewRecoveryManager(db)
	interrupted, err := recovery.CheckForInterrupted()
	if err != nil {
		return fmt.Errorf("check for interrupted workflows: %w", err)
	}

	if len(interrupted) == 0 {
		fmt.Println("No interrupted workflows found.")
	} else {
		fmt.Printf("Found %d interrupted workflow(s):\n", len(interrupted))
		for _, iw := range interrupted {
			age := ""
			if iw.StartedAt != nil {
				age = fmt.Sprintf(", started %s ago", formatDuration(time.Since(*iw.StartedAt)))
			}
			fmt.Printf("  - %s: \"%s\" (%s, %d open tasks%s)\n", iw.WorkflowID, iw.Name, iw.Status, iw.OpenTasks, age)
		}
		fmt.Println()

		switch {
		case cleanupDryRun:
			fmt.Println("Dry run mode - no workflows were changed.")
		case cleanupForce || confirm("Mark these workflows as failed?"):
			cleaned, err := recovery.CleanAll()
			if err != nil {
				return fmt.Errorf("clean interrupted workflows: %w", err)
			}
			fmt.Printf("Cleaned %d workflow(s).\n", cleaned)
		default:
			fmt.Println("Cleanup cancelled.")
		}
	}

	if cleanupPurge {
		return purgeOldWorkflows(db)
	}
	return nil
}

// purgeOldWorkflows deletes terminal workflows older than 30 days.
func purgeOldWorkflows(db *state.DB) error {
	const maxAge = 30 * 24 * time.Hour

	if cleanupDryRun {
		recent, err := db.ListRecentWorkflows(1000)
		if err != nil {
			return fmt.Errorf("list workflows: %w", err)
		}
		cutoff := time.Now().Add(-maxAge)
		count := 0
		for _, wf := range recent {
			if wf.Status.Terminal() && wf.CreatedAt.Before(cutoff) {
				count++
			}
		}
		fmt.Printf("Dry run: would purge %d workflow(s) older than 30 days.\n", count)
		return nil
	}

	purged, err := db.PurgeOldWorkflows(maxAge)
	if err != nil {
		return fmt.Errorf("purge old workflows: %w", err)
	}

	if purged > 0 {
		fmt.Printf("Purged %d workflow(s) older than 30 days.\n", purged)
	} else {
		fmt.Println("No workflows older than 30 days found.")
	}
	return nil
}

// confirm prompts for a y/N answer on stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
