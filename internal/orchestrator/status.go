package orchestrator

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// ResultUpdate is an externally reported task outcome, typically a status
// update message from a remote worker.
type ResultUpdate struct {
	// TaskID names the task the update applies to.
	TaskID string
	// Status is the reported task status.
	Status models.TaskStatus
	// Output carries the result text for a completed task.
	Output string
	// TokensUsed is the reported token consumption.
	TokensUsed int64
	// Cost is the reported dollar cost.
	Cost float64
	// Error carries the failure detail for a failed task.
	Error string
}

// ApplyResult applies an externally reported outcome. Completed and failed
// results settle resources and mark the dependency graph exactly like
// internally executed tasks; other statuses pass through to the monitor.
func (o *Orchestrator) ApplyResult(update ResultUpdate) error {
	switch update.Status {
	case models.TaskStatusCompleted:
		return o.applyOutcome(update.TaskID, update.Status, update.Output, update.TokensUsed, update.Cost, "", 0)
	case models.TaskStatusFailed:
		detail := update.Error
		if detail == "" {
			detail = "reported failed"
		}
		return o.applyOutcome(update.TaskID, update.Status, detail, update.TokensUsed, update.Cost, "", 0)
	default:
		return o.monitor.ApplyStatusUpdate(update.TaskID, update.Status, update.Output)
	}
}

// applyOutcome is the single settlement path for a terminal task result: it
// updates the monitor, settles ledger holds, records cost on the workflow,
// marks the dependency graph, persists, and announces the outcome.
func (o *Orchestrator) applyOutcome(taskID string, status models.TaskStatus, detail string, tokens int64, cost float64, workerID string, elapsed time.Duration) error {
	if status != models.TaskStatusCompleted && status != models.TaskStatusFailed {
		return fmt.Errorf("task %s: outcome status must be completed or failed, got %q", taskID, status)
	}

	// A cancelled task stays cancelled; late results are dropped.
	if current, ok := o.monitor.StatusOf(taskID); ok && current == models.TaskStatusCancelled {
		debugLog("[orchestrator] dropping %s outcome for cancelled task %s", status, taskID)
		return nil
	}

	if err := o.monitor.ApplyStatusUpdate(taskID, status, detail); err != nil {
		return err
	}

	if status == models.TaskStatusCompleted {
		o.settleReservations(taskID, tokens)
	} else {
		o.ledger.ReleaseAll(taskID)
	}

	if err := o.monitor.Mutate(taskID, func(t *models.Task) {
		if t.Metadata == nil {
			t.Metadata = make(map[string]string)
		}
		t.Metadata["tokens"] = strconv.FormatInt(tokens, 10)
		t.Metadata["cost"] = strconv.FormatFloat(cost, 'f', 6, 64)
		if elapsed > 0 {
			t.Metadata["elapsed"] = elapsed.Round(time.Millisecond).String()
		}
	}); err != nil {
		log.Printf("[orchestrator] warning: annotate task %s: %v", taskID, err)
	}

	task := o.monitor.Snapshot(taskID)
	if workerID == "" {
		workerID = task.AssignedTo
	}

	o.mu.Lock()
	workflowID := o.taskIndex[taskID]
	wf := o.workflows[workflowID]
	handle := o.graphs[workflowID]
	if wf != nil {
		wf.TotalCost += cost
		if workerID != "" {
			wf.AddWorker(workerID)
		}
	}
	o.mu.Unlock()

	if handle != nil {
		if status == models.TaskStatusCompleted {
			handle.graph.MarkComplete(taskID)
		} else {
			handle.graph.MarkFailed(taskID)
		}
	}

	o.persistTask(task)
	if wf != nil {
		o.persistWorkflow(wf)
	}

	event := Event{
		WorkflowID: workflowID,
		TaskID:     taskID,
		TaskTitle:  task.Title,
		WorkerID:   workerID,
		Tokens:     tokens,
		Cost:       cost,
		Duration:   elapsed,
		Timestamp:  time.Now(),
	}
	if status == models.TaskStatusCompleted {
		event.Type = EventTaskCompleted
		event.Message = fmt.Sprintf("task %s completed", task.Title)
	} else {
		event.Type = EventTaskFailed
		event.Message = fmt.Sprintf("task %s failed: %s", task.Title, detail)
	}
	o.emit(event)
	return nil
}

// settleReservations converts estimate-based holds into actuals after a
// successful run: the worker slot frees entirely and the token hold shrinks
// or grows to what was consumed. Consumed tokens stay allocated against the
// budget for the rest of the run.
func (o *Orchestrator) settleReservations(taskID string, tokensUsed int64) {
	if entry, ok := o.ledger.Get(ResourceWorkerSlots); ok {
		if _, holds := entry.ReservedBy[taskID]; holds {
			o.ledger.Release(ResourceWorkerSlots, 1, taskID)
		}
	}

	entry, ok := o.ledger.Get(ResourceTokenBudget)
	if !ok {
		return
	}
	held := entry.ReservedBy[taskID]
	actual := float64(tokensUsed)
	switch {
	case actual < held:
		o.ledger.Release(ResourceTokenBudget, held-actual, taskID)
	case actual > held:
		if err := o.ledger.Reserve(ResourceTokenBudget, actual-held, taskID); err != nil {
			log.Printf("[orchestrator] warning: task %s consumed %.0f tokens over its hold: %v", taskID, actual-held, err)
		}
	}
}

// WorkflowStatusSnapshot is a point-in-time summary of a workflow for
// status queries.
type WorkflowStatusSnapshot struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Status      models.WorkflowStatus `json:"status"`
	Mode        models.ExecutionMode  `json:"mode"`
	Progress    float64               `json:"progress"`
	Total       int                   `json:"total_tasks"`
	Completed   int                   `json:"completed"`
	Failed      int                   `json:"failed"`
	Running     int                   `json:"running"`
	Pending     int                   `json:"pending"`
	TotalCost   float64               `json:"total_cost"`
	Workers     []string              `json:"workers,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Tasks       []TaskStatusSnapshot  `json:"tasks"`
}

// TaskStatusSnapshot is a point-in-time summary of one task.
type TaskStatusSnapshot struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Status         models.TaskStatus `json:"status"`
	AssignedWorker string            `json:"assigned_worker,omitempty"`
	RetryCount     int               `json:"retry_count,omitempty"`
	Cost           float64           `json:"cost,omitempty"`
	Tokens         int64             `json:"tokens,omitempty"`
	Elapsed        string            `json:"elapsed,omitempty"`
	Result         string            `json:"result,omitempty"`
	Error          string            `json:"error,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// Status reports a workflow's progress. Progress is the completed fraction
// of all tasks, in [0, 1].
func (o *Orchestrator) Status(workflowID string) (*WorkflowStatusSnapshot, error) {
	o.mu.RLock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		o.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflow, workflowID)
	}
	snapshot := &WorkflowStatusSnapshot{
		ID:          wf.ID,
		Name:        wf.Name,
		Status:      wf.Status,
		Mode:        wf.Mode,
		TotalCost:   wf.TotalCost,
		Workers:     append([]string(nil), wf.Workers...),
		CreatedAt:   wf.CreatedAt,
		StartedAt:   wf.StartedAt,
		CompletedAt: wf.CompletedAt,
	}
	taskIDs := append([]string(nil), wf.TaskIDs...)
	o.mu.RUnlock()

	for _, taskID := range taskIDs {
		task := o.monitor.Snapshot(taskID)
		if task == nil {
			continue
		}
		snapshot.Tasks = append(snapshot.Tasks, taskSnapshot(task))
		switch task.Status {
		case models.TaskStatusCompleted:
			snapshot.Completed++
		case models.TaskStatusFailed:
			snapshot.Failed++
		case models.TaskStatusInProgress:
			snapshot.Running++
		case models.TaskStatusPending, models.TaskStatusPaused:
			snapshot.Pending++
		}
	}
	snapshot.Total = len(snapshot.Tasks)
	if snapshot.Total > 0 {
		snapshot.Progress = float64(snapshot.Completed) / float64(snapshot.Total)
	}
	return snapshot, nil
}

// TaskStatus reports one task's progress.
func (o *Orchestrator) TaskStatus(taskID string) (*TaskStatusSnapshot, error) {
	task := o.monitor.Snapshot(taskID)
	if task == nil {
		return nil, fmt.Errorf("unknown task: %s", taskID)
	}
	snapshot := taskSnapshot(task)
	return &snapshot, nil
}

func taskSnapshot(task *models.Task) TaskStatusSnapshot {
	snapshot := TaskStatusSnapshot{
		ID:             task.ID,
		Title:          task.Title,
		Status:         task.Status,
		AssignedWorker: task.AssignedTo,
		RetryCount:     task.RetryCount,
		Result:         task.Result,
		Error:          task.Error,
		CompletedAt:    task.CompletedAt,
		Elapsed:        task.Metadata["elapsed"],
	}
	if raw := task.Metadata["cost"]; raw != "" {
		if cost, err := strconv.ParseFloat(raw, 64); err == nil {
			snapshot.Cost = cost
		}
	}
	if raw := task.Metadata["tokens"]; raw != "" {
		if tokens, err := strconv.ParseInt(raw, 10, 64); err == nil {
			snapshot.Tokens = tokens
		}
	}
	return snapshot
}
