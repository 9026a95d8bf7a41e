package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jairodriguez/autonomica/internal/capability"
	"github.com/jairodriguez/autonomica/internal/ledger"
	"github.com/jairodriguez/autonomica/pkg/models"
)

// runTask drives one task through worker assignment, resource reservation,
// execution, and settlement. It returns true when the task reached a
// terminal status and false when it was deferred for a later pass.
func (o *Orchestrator) runTask(ctx context.Context, wf *models.WorkflowExecution, handle *graphHandle, task *models.Task) bool {
	if o.taskTerminal(task.ID) {
		return true
	}

	estTokens := EstimateTaskTokens(task)

	worker := o.allocateWorker(task, "")
	if worker == nil {
		o.deferTask(wf, task, ErrNoEligibleWorker.Error())
		return false
	}

	o.emit(Event{
		Type:       EventTaskQueued,
		WorkflowID: wf.ID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		WorkerID:   worker.ID,
		Message:    fmt.Sprintf("task %s queued for %s", task.Title, worker.Name),
		Timestamp:  time.Now(),
	})

	for {
		if !o.reserveTaskResources(wf, task, estTokens) {
			return false
		}

		res, elapsed, err := o.invokeAssigned(ctx, wf, task, worker)
		if err == nil {
			tokens := res.InputTokens + res.OutputTokens
			cost := o.costs.TaskCost(res.Model, res.InputTokens, res.OutputTokens, elapsed)
			if applyErr := o.applyOutcome(task.ID, models.TaskStatusCompleted, res.Output, tokens, cost, worker.ID, elapsed); applyErr != nil {
				log.Printf("[orchestrator] warning: settle task %s: %v", task.ID, applyErr)
			}
			return true
		}

		// A failed attempt gives back everything it held.
		o.ledger.ReleaseAll(task.ID)

		if errors.Is(err, context.Canceled) || o.workflowCancelled(wf.ID) {
			// Cancellation settles the task elsewhere; no retry.
			return true
		}

		retries := 0
		if mutErr := o.monitor.Mutate(task.ID, func(t *models.Task) {
			t.RetryCount++
			retries = t.RetryCount
		}); mutErr != nil {
			log.Printf("[orchestrator] warning: count retry for %s: %v", task.ID, mutErr)
		}
		o.logger.Log("[orchestrator] task %s attempt %d failed on %s: %v", task.ID, retries, worker.ID, err)

		if retries > o.maxTaskRetries() {
			if applyErr := o.applyOutcome(task.ID, models.TaskStatusFailed, err.Error(), 0, 0, worker.ID, elapsed); applyErr != nil {
				log.Printf("[orchestrator] warning: settle task %s: %v", task.ID, applyErr)
			}
			return true
		}

		alternate := o.allocateWorker(task, worker.ID)
		if alternate == nil {
			o.deferTask(wf, task, fmt.Sprintf("no alternate worker after: %v", err))
			return false
		}
		debugLog("[orchestrator] task %s retrying on alternate worker %s", task.ID, alternate.ID)
		worker = alternate
	}
}

// maxTaskRetries resolves the retry cap, falling back to one alternate
// attempt for zero-value configs.
func (o *Orchestrator) maxTaskRetries() int {
	if o.cfg.Orchestrator.MaxTaskRetries > 0 {
		return o.cfg.Orchestrator.MaxTaskRetries
	}
	return 1
}

// allocateWorker picks the best-scoring worker for the task, optionally
// excluding one after a failed attempt. An agent_type annotation narrows
// the candidates to that role whenever any such worker is registered.
func (o *Orchestrator) allocateWorker(task *models.Task, excludeID string) *models.Worker {
	workers := o.registry.List()

	if role := task.Metadata["agent_type"]; role != "" {
		var sameRole []*models.Worker
		for _, w := range workers {
			if w.Role == role {
				sameRole = append(sameRole, w)
			}
		}
		if len(sameRole) > 0 {
			if w := o.matcher.AllocateExcluding(sameRole, task, excludeID); w != nil {
				return w
			}
		}
	}

	return o.matcher.AllocateExcluding(workers, task, excludeID)
}

// reserveTaskResources takes one worker slot plus the estimated token hold.
// Either both reservations land or neither does. On exhaustion the task is
// deferred and a negotiation opens with the current holders.
func (o *Orchestrator) reserveTaskResources(wf *models.WorkflowExecution, task *models.Task, estTokens int64) bool {
	if err := o.reserveOne(ResourceWorkerSlots, 1, task.ID); err != nil {
		o.handleReserveFailure(wf, task, ResourceWorkerSlots, err)
		return false
	}
	if err := o.reserveOne(ResourceTokenBudget, float64(estTokens), task.ID); err != nil {
		o.ledger.Release(ResourceWorkerSlots, 1, task.ID)
		o.handleReserveFailure(wf, task, ResourceTokenBudget, err)
		return false
	}
	o.clearConflicts(task.ID)
	return true
}

// reserveOne reserves against one ledger entry. A resource that was never
// registered is not accounted, so reservation passes through.
func (o *Orchestrator) reserveOne(resourceID string, amount float64, taskID string) error {
	err := o.ledger.Reserve(resourceID, amount, taskID)
	if errors.Is(err, ledger.ErrUnknownResource) {
		debugLog("[orchestrator] resource %s not registered, skipping reservation", resourceID)
		return nil
	}
	return err
}

// handleReserveFailure records why the task cannot run now. Exhaustion is a
// conflict: it opens a negotiation with the resource's current holders.
func (o *Orchestrator) handleReserveFailure(wf *models.WorkflowExecution, task *models.Task, resourceID string, cause error) {
	if errors.Is(cause, ledger.ErrResourceExhausted) {
		o.openConflict(wf, task, resourceID)
	}
	o.deferTask(wf, task, cause.Error())
}

// openConflict opens one negotiation per task/resource pair. Re-deferring
// the same starved task does not multiply negotiations; the pair is armed
// again once the task reserves successfully.
func (o *Orchestrator) openConflict(wf *models.WorkflowExecution, task *models.Task, resourceID string) {
	key := task.ID + "/" + resourceID

	o.mu.Lock()
	if o.conflicts[key] {
		o.mu.Unlock()
		return
	}
	o.conflicts[key] = true
	o.mu.Unlock()

	var involved []string
	for _, holder := range o.ledger.Holders(resourceID) {
		if holder != task.ID {
			involved = append(involved, holder)
		}
	}

	o.emit(Event{
		Type:       EventConflictDetected,
		WorkflowID: wf.ID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		Message:    fmt.Sprintf("resource %s contended by %d parties", resourceID, len(involved)+1),
		Timestamp:  time.Now(),
	})

	st := o.negotiations.Start(resourceID, task.ID, involved)
	o.persistNegotiation(st)
	o.emit(Event{
		Type:          EventNegotiationOpened,
		WorkflowID:    wf.ID,
		TaskID:        task.ID,
		NegotiationID: st.ID,
		Message:       fmt.Sprintf("negotiation %s opened over %s", st.ID, resourceID),
		Timestamp:     time.Now(),
	})
	o.logger.Log("[orchestrator] conflict on %s: negotiation %s with %d parties", resourceID, st.ID, len(st.Parties))
}

// clearConflicts re-arms conflict detection for a task after a successful
// reservation.
func (o *Orchestrator) clearConflicts(taskID string) {
	prefix := taskID + "/"
	o.mu.Lock()
	for key := range o.conflicts {
		if strings.HasPrefix(key, prefix) {
			delete(o.conflicts, key)
		}
	}
	o.mu.Unlock()
}

// invokeAssigned runs the task on the worker under the per-task timeout.
// The returned duration is the wall-clock execution time regardless of
// outcome.
func (o *Orchestrator) invokeAssigned(ctx context.Context, wf *models.WorkflowExecution, task *models.Task, worker *models.Worker) (*capability.Result, time.Duration, error) {
	timeout := o.cfg.Orchestrator.TaskTimeout
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}

	if err := o.monitor.Mutate(task.ID, func(t *models.Task) {
		t.AssignedTo = worker.ID
	}); err != nil {
		return nil, 0, err
	}
	if err := o.monitor.ApplyStatusUpdate(task.ID, models.TaskStatusInProgress, ""); err != nil {
		return nil, 0, err
	}
	o.registry.SetBusy(worker.ID)
	defer o.registry.SetIdle(worker.ID)

	o.persistTask(task)
	o.emit(Event{
		Type:       EventTaskStarted,
		WorkflowID: wf.ID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		WorkerID:   worker.ID,
		Message:    fmt.Sprintf("task %s started on %s", task.Title, worker.Name),
		Timestamp:  time.Now(),
	})
	debugLog("[orchestrator] task %s (%s) started on worker %s", task.ID, task.Title, worker.ID)

	invCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	o.trackCancel(task.ID, cancel)
	defer o.untrackCancel(task.ID)

	start := time.Now()
	res, err := o.invoker.Invoke(invCtx, capability.Request{Task: task, Worker: worker})
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(invCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, elapsed, fmt.Errorf("%w: %s after %s on worker %s", ErrTaskTimeout, task.ID, timeout, worker.ID)
		case ctx.Err() != nil, errors.Is(err, context.Canceled):
			return nil, elapsed, context.Canceled
		default:
			return nil, elapsed, fmt.Errorf("%w: %v", ErrTaskFailed, err)
		}
	}
	return res, elapsed, nil
}

// deferTask returns a task to pending with the reason recorded, leaving it
// for a later scheduling pass.
func (o *Orchestrator) deferTask(wf *models.WorkflowExecution, task *models.Task, reason string) {
	status, _ := o.monitor.StatusOf(task.ID)
	if status != models.TaskStatusPending {
		if err := o.monitor.ApplyStatusUpdate(task.ID, models.TaskStatusPending, ""); err != nil {
			log.Printf("[orchestrator] warning: defer task %s: %v", task.ID, err)
			return
		}
	}
	if err := o.monitor.Mutate(task.ID, func(t *models.Task) {
		t.Error = reason
	}); err != nil {
		log.Printf("[orchestrator] warning: defer task %s: %v", task.ID, err)
	}

	o.persistTask(task)
	o.emit(Event{
		Type:       EventTaskDeferred,
		WorkflowID: wf.ID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		Message:    reason,
		Timestamp:  time.Now(),
	})
	debugLog("[orchestrator] task %s deferred: %s", task.ID, reason)
}

// trackCancel exposes an in-flight invocation to CancelWorkflow.
func (o *Orchestrator) trackCancel(taskID string, cancel context.CancelFunc) {
	o.mu.Lock()
	o.cancels[taskID] = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) untrackCancel(taskID string) {
	o.mu.Lock()
	delete(o.cancels, taskID)
	o.mu.Unlock()
}
