package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventWorkflowSubmitted indicates a workflow was accepted.
	EventWorkflowSubmitted EventType = "workflow_submitted"
	// EventWorkflowStarted indicates workflow execution has begun.
	EventWorkflowStarted EventType = "workflow_started"
	// EventWorkflowCompleted indicates every task finished successfully.
	EventWorkflowCompleted EventType = "workflow_completed"
	// EventWorkflowFailed indicates at least one task failed permanently.
	EventWorkflowFailed EventType = "workflow_failed"
	// EventWorkflowCancelled indicates the workflow was cancelled.
	EventWorkflowCancelled EventType = "workflow_cancelled"
	// EventTaskQueued indicates a task is ready and queued for dispatch.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventTaskDeferred indicates a task could not reserve resources or find
	// a worker and will be retried on a later pass.
	EventTaskDeferred EventType = "task_deferred"
	// EventTaskCancelled indicates a task was cancelled with its workflow.
	EventTaskCancelled EventType = "task_cancelled"
	// EventConflictDetected indicates contention on a shared resource.
	EventConflictDetected EventType = "conflict_detected"
	// EventNegotiationOpened indicates a negotiation was started.
	EventNegotiationOpened EventType = "negotiation_opened"
	// EventNegotiationResolved indicates a negotiation reached an outcome.
	EventNegotiationResolved EventType = "negotiation_resolved"
	// EventWorkerRegistered indicates a worker joined the registry.
	EventWorkerRegistered EventType = "worker_registered"
	// EventWorkerDeregistered indicates a worker left the registry.
	EventWorkerDeregistered EventType = "worker_deregistered"
	// EventBudgetWarning indicates resource utilization crossed the
	// configured warning threshold.
	EventBudgetWarning EventType = "budget_warning"
)

// Event represents an event emitted by the orchestrator.
// These events are used to update the TUI and track progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// WorkflowID is the ID of the related workflow, if applicable.
	WorkflowID string
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// TaskTitle is the title of the related task, if applicable.
	TaskTitle string
	// WorkerID is the ID of the related worker, if applicable.
	WorkerID string
	// NegotiationID is the ID of the related negotiation, if applicable.
	NegotiationID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Tokens is the token consumption reported with the event, if any.
	Tokens int64
	// Cost is the dollar cost reported with the event, if any.
	Cost float64
	// Duration is the elapsed time reported with the event, if any.
	Duration time.Duration
}
