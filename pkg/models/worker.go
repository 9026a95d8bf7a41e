package models

// WorkerStatus represents the availability of a worker.
type WorkerStatus string

const (
	// WorkerStatusIdle indicates the worker can accept a task.
	WorkerStatusIdle WorkerStatus = "idle"
	// WorkerStatusBusy indicates the worker is executing a task.
	WorkerStatusBusy WorkerStatus = "busy"
	// WorkerStatusOffline indicates the worker is unavailable.
	WorkerStatusOffline WorkerStatus = "offline"
)

// Valid returns true if the status is a known value.
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusIdle, WorkerStatusBusy, WorkerStatusOffline:
		return true
	default:
		return false
	}
}

// Worker represents an entity capable of executing tasks.
type Worker struct {
	// ID is the unique identifier for this worker.
	ID string `json:"id"`
	// Name is the human-readable display name.
	Name string `json:"name"`
	// Role is the worker's type tag (e.g. "researcher", "builder").
	Role string `json:"role"`
	// Description is the declared system description used for matching.
	Description string `json:"description,omitempty"`
	// Status is the current availability of the worker.
	Status WorkerStatus `json:"status"`
	// Tools lists the tool capabilities this worker declares.
	Tools []string `json:"tools,omitempty"`
	// Model is the reasoning model identifier this worker runs on.
	Model string `json:"model,omitempty"`
	// Workload is the number of tasks currently assigned.
	Workload int `json:"workload"`
}

// HasTool returns true if the worker declares the named tool.
func (w *Worker) HasTool(name string) bool {
	for _, t := range w.Tools {
		if t == name {
			return true
		}
	}
	return false
}
