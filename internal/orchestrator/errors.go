package orchestrator

import "errors"

// ErrTaskTimeout indicates a task exceeded its execution bound. The task's
// reservations are released and one alternate-worker attempt is made.
var ErrTaskTimeout = errors.New("task execution timed out")

// ErrTaskFailed indicates the execution capability reported failure.
var ErrTaskFailed = errors.New("task execution failed")

// ErrWorkflowFailed indicates at least one task failed permanently.
var ErrWorkflowFailed = errors.New("workflow failed")

// ErrNoEligibleWorker indicates the matcher found no worker for a task.
var ErrNoEligibleWorker = errors.New("no eligible worker")

// ErrUnknownWorkflow indicates a workflow ID that is not registered.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// ErrUnknownWorker indicates a worker ID that is not registered.
var ErrUnknownWorker = errors.New("unknown worker")

// ErrDuplicateWorker indicates a worker ID that is already registered.
var ErrDuplicateWorker = errors.New("worker already registered")

// ErrAlreadyTerminal indicates an operation on a workflow that has already
// reached a final state.
var ErrAlreadyTerminal = errors.New("workflow already terminal")

// ErrOrchestratorStopped indicates the orchestrator is shutting down and
// accepts no further work.
var ErrOrchestratorStopped = errors.New("orchestrator stopped")
