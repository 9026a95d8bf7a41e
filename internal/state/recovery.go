package state

import (
	"fmt"
	"log"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// InterruptedWorkflow contains information about a workflow left non-terminal
// by a previous run, detected on startup.
type InterruptedWorkflow struct {
	WorkflowID string
	Name       string
	Status     string
	StartedAt  *time.Time
	OpenTasks  int
}

// RecoveryManager handles detection and cleanup of interrupted workflows.
type RecoveryManager struct {
	db *DB
}

// NewRecoveryManager creates a new RecoveryManager with the given database.
func NewRecoveryManager(db *DB) *RecoveryManager {
	return &RecoveryManager{db: db}
}

// CheckForInterrupted detects workflows the previous process never finished.
// A workflow recorded as pending or in_progress with no process running it
// is interrupted: nothing will ever advance it again.
func (rm *RecoveryManager) CheckForInterrupted() ([]InterruptedWorkflow, error) {
	active, err := rm.db.ActiveWorkflows()
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}

	var interrupted []InterruptedWorkflow
	for _, w := range active {
		tasks, err := rm.db.ListWorkflowTasks(w.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks for %s: %w", w.ID, err)
		}

		open := 0
		for _, t := range tasks {
			if !t.Status.Terminal() {
				open++
			}
		}

		interrupted = append(interrupted, InterruptedWorkflow{
			WorkflowID: w.ID,
			Name:       w.Name,
			Status:     string(w.Status),
			StartedAt:  w.StartedAt,
			OpenTasks:  open,
		})
	}

	return interrupted, nil
}

// Clean marks an interrupted workflow as failed and fails its open tasks.
func (rm *RecoveryManager) Clean(workflowID string) error {
	workflow, err := rm.db.GetWorkflow(workflowID)
	if err != nil {
		return fmt.Errorf("load workflow: %w", err)
	}
	if workflow == nil {
		return fmt.Errorf("workflow %s not found", workflowID)
	}

	tasks, err := rm.db.ListWorkflowTasks(workflowID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	for i := range tasks {
		t := &tasks[i]
		if t.Status.Terminal() {
			continue
		}
		t.SetStatus(models.TaskStatusFailed)
		t.Error = "interrupted by restart"
		if err := rm.db.UpdateTask(t); err != nil {
			return fmt.Errorf("fail task %s: %w", t.ID, err)
		}
	}

	now := time.Now()
	workflow.Status = models.WorkflowStatusFailed
	workflow.CompletedAt = &now
	if err := rm.db.UpdateWorkflow(workflow); err != nil {
		return fmt.Errorf("mark workflow failed: %w", err)
	}

	log.Printf("[state] workflow %s cleaned up and marked as failed", workflowID)
	return nil
}

// CleanAll cleans every interrupted workflow. Returns how many were cleaned.
func (rm *RecoveryManager) CleanAll() (int, error) {
	interrupted, err := rm.CheckForInterrupted()
	if err != nil {
		return 0, err
	}

	for _, iw := range interrupted {
		if err := rm.Clean(iw.WorkflowID); err != nil {
			return 0, err
		}
	}

	return len(interrupted), nil
}
