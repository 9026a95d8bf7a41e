package models

import "time"

// ExecutionMode selects the scheduling strategy for a workflow.
type ExecutionMode string

const (
	// ModeSequential executes tasks one at a time in dependency order.
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel executes tasks concurrently by dependency level.
	ModeParallel ExecutionMode = "parallel"
	// ModeAdaptive picks sequential or parallel based on workers and graph shape.
	ModeAdaptive ExecutionMode = "adaptive"
)

// Valid returns true if the mode is a known value.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeAdaptive:
		return true
	default:
		return false
	}
}

// WorkflowStatus represents the aggregate state of a workflow.
type WorkflowStatus string

const (
	// WorkflowStatusPending indicates the workflow has not started.
	WorkflowStatusPending WorkflowStatus = "pending"
	// WorkflowStatusInProgress indicates the workflow is executing.
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	// WorkflowStatusCompleted indicates all tasks finished successfully.
	WorkflowStatusCompleted WorkflowStatus = "completed"
	// WorkflowStatusFailed indicates at least one task failed permanently.
	WorkflowStatusFailed WorkflowStatus = "failed"
	// WorkflowStatusCancelled indicates the workflow was cancelled.
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusPending, WorkflowStatusInProgress, WorkflowStatusCompleted,
		WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	default:
		return false
	}
}

// WorkflowExecution represents one submitted workflow and its run state.
type WorkflowExecution struct {
	// ID is the unique identifier for this workflow.
	ID string `json:"id"`
	// Name is the caller-supplied workflow name.
	Name string `json:"name"`
	// TaskIDs lists the workflow's tasks in submission order.
	TaskIDs []string `json:"task_ids"`
	// Status is the aggregate state of the workflow.
	Status WorkflowStatus `json:"status"`
	// Mode is the scheduling strategy chosen for this workflow.
	Mode ExecutionMode `json:"mode"`
	// MaxParallel bounds concurrent tasks within a dependency level.
	MaxParallel int `json:"max_parallel,omitempty"`
	// CreatedAt is when the workflow was submitted.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when execution began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the workflow reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// TotalCost is the accumulated dollar cost across all tasks.
	TotalCost float64 `json:"total_cost"`
	// Workers lists the IDs of workers that participated.
	Workers []string `json:"workers,omitempty"`
	// Metadata carries free-form key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AddWorker records a participating worker, once.
func (w *WorkflowExecution) AddWorker(id string) {
	for _, existing := range w.Workers {
		if existing == id {
			return
		}
	}
	w.Workers = append(w.Workers, id)
}
