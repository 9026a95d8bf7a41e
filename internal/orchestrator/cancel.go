package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// CancelWorkflow stops a workflow. Pending and running tasks move to
// cancelled, their ledger holds are released, and in-flight invocations are
// interrupted through their contexts. Tasks that already finished keep
// their outcomes; the workflow itself keeps Cancelled as its terminal
// status.
func (o *Orchestrator) CancelWorkflow(workflowID string) error {
	o.mu.Lock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, workflowID)
	}
	if wf.Status.Terminal() {
		o.mu.Unlock()
		return ErrAlreadyTerminal
	}
	now := time.Now()
	wf.Status = models.WorkflowStatusCancelled
	wf.CompletedAt = &now
	handle := o.graphs[workflowID]

	var interrupts []context.CancelFunc
	for _, taskID := range wf.TaskIDs {
		if cancel, inFlight := o.cancels[taskID]; inFlight {
			interrupts = append(interrupts, cancel)
		}
	}
	o.mu.Unlock()

	for _, task := range handle.tasks {
		if o.taskTerminal(task.ID) {
			continue
		}
		if err := o.monitor.ApplyStatusUpdate(task.ID, models.TaskStatusCancelled, ""); err != nil {
			log.Printf("[orchestrator] warning: cancel task %s: %v", task.ID, err)
			continue
		}
		o.ledger.ReleaseAll(task.ID)
		o.persistTask(task)
		o.emit(Event{
			Type:       EventTaskCancelled,
			WorkflowID: workflowID,
			TaskID:     task.ID,
			TaskTitle:  task.Title,
			Timestamp:  time.Now(),
		})
	}

	// Interrupt whatever is still executing. The runner sees the
	// cancellation and skips settlement for these tasks.
	for _, cancel := range interrupts {
		cancel()
	}

	o.persistWorkflow(wf)
	o.emit(Event{
		Type:       EventWorkflowCancelled,
		WorkflowID: workflowID,
		Message:    fmt.Sprintf("workflow %s cancelled", wf.Name),
		Timestamp:  time.Now(),
	})
	o.logger.Log("[orchestrator] workflow %s cancelled", workflowID)
	return nil
}
