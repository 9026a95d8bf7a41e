package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusPaused indicates the task is temporarily suspended.
	TaskStatusPaused TaskStatus = "paused"
	// TaskStatusCancelled indicates the task was cancelled with its workflow.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusPaused, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Task represents a unit of work in the system.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// RequiredTools lists tool names the assigned worker must provide.
	RequiredTools []string `json:"required_tools,omitempty"`
	// SubTasks holds decomposed units owned by this task.
	SubTasks []SubTask `json:"sub_tasks,omitempty"`
	// AssignedTo is the ID of the worker executing this task.
	AssignedTo string `json:"assigned_to,omitempty"`
	// Priority orders tasks within a scheduling pass; higher runs first.
	Priority int `json:"priority,omitempty"`
	// EstimatedDuration is the caller-supplied duration estimate.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is set when the task reaches completed or failed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Metadata carries free-form key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
	// Result holds the execution output for a completed task.
	Result string `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// RetryCount is the number of times this task has been retried.
	RetryCount int `json:"retry_count,omitempty"`
}

// SetStatus transitions the task and maintains the timestamp invariant:
// CompletedAt is set exactly when the status is completed or failed.
func (t *Task) SetStatus(s TaskStatus) {
	now := time.Now()
	t.Status = s
	t.UpdatedAt = now
	switch s {
	case TaskStatusCompleted, TaskStatusFailed:
		t.CompletedAt = &now
	default:
		t.CompletedAt = nil
	}
}

// SubTask is a decomposed unit of work owned by a parent task.
// It has no lifecycle independent of its parent.
type SubTask struct {
	// ID is the unique identifier for this subtask.
	ID string `json:"id"`
	// Title is the short description of the subtask.
	Title string `json:"title"`
	// Description provides detail about the subtask, if any.
	Description string `json:"description,omitempty"`
	// Status is the current state of the subtask.
	Status TaskStatus `json:"status"`
	// Result holds the subtask output, if any.
	Result string `json:"result,omitempty"`
}
