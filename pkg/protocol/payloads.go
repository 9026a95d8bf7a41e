package protocol

import "time"

// TaskAssignment tells a worker to begin a task.
type TaskAssignment struct {
	// TaskID is the assigned task.
	TaskID string `json:"task_id"`
	// Title is the task's short description.
	Title string `json:"title"`
	// Description provides task detail for the worker.
	Description string `json:"description,omitempty"`
	// RequiredTools lists tools the worker must use.
	RequiredTools []string `json:"required_tools,omitempty"`
	// Deadline is when the assignment expires, if bounded.
	Deadline time.Time `json:"deadline,omitempty"`
}

func (*TaskAssignment) kind() Kind { return KindTaskAssignment }

// TaskDecompositionRequest asks a worker to split a task into subtasks.
type TaskDecompositionRequest struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	// MaxSubTasks bounds the number of proposed subtasks; 0 means no bound.
	MaxSubTasks int `json:"max_sub_tasks,omitempty"`
}

func (*TaskDecompositionRequest) kind() Kind { return KindTaskDecompositionRequest }

// SubTaskSpec is one proposed subtask in a decomposition response.
type SubTaskSpec struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// TaskDecompositionResponse returns a worker's proposed subtasks.
type TaskDecompositionResponse struct {
	TaskID   string        `json:"task_id"`
	SubTasks []SubTaskSpec `json:"sub_tasks"`
}

func (*TaskDecompositionResponse) kind() Kind { return KindTaskDecompositionResponse }

// StatusUpdate reports task progress or completion to the orchestrator.
type StatusUpdate struct {
	TaskID string `json:"task_id"`
	// Status is the new task status as a string; validated on receipt.
	Status string `json:"status"`
	// Detail carries a result payload or error message.
	Detail string `json:"detail,omitempty"`
	// TokensUsed is the cumulative token consumption for the task.
	TokensUsed int64 `json:"tokens_used,omitempty"`
	// Cost is the cumulative dollar cost for the task.
	Cost float64 `json:"cost,omitempty"`
}

func (*StatusUpdate) kind() Kind { return KindStatusUpdate }

// Feedback carries a quality rating for completed work.
type Feedback struct {
	TaskID  string `json:"task_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

func (*Feedback) kind() Kind { return KindFeedback }

// DataRequest asks another party for a named value.
type DataRequest struct {
	Key string `json:"key"`
}

func (*DataRequest) kind() Kind { return KindDataRequest }

// DataResponse answers a data request.
type DataResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (*DataResponse) kind() Kind { return KindDataResponse }

// ConflictDetected reports contention over a shared resource.
type ConflictDetected struct {
	// ResourceID is the contested ledger entry.
	ResourceID string `json:"resource_id"`
	// TaskIDs lists the tasks competing for the resource.
	TaskIDs []string `json:"task_ids"`
	Detail  string   `json:"detail,omitempty"`
}

func (*ConflictDetected) kind() Kind { return KindConflictDetected }

// NegotiationRequest opens or advances a resource negotiation.
type NegotiationRequest struct {
	NegotiationID string `json:"negotiation_id"`
	ResourceID    string `json:"resource_id"`
	Proposal      string `json:"proposal"`
}

func (*NegotiationRequest) kind() Kind { return KindNegotiationRequest }

// NegotiationResponse accepts or counters a negotiation proposal.
type NegotiationResponse struct {
	NegotiationID string `json:"negotiation_id"`
	Accepted      bool   `json:"accepted"`
	// CounterProposal is set when Accepted is false and the party offers
	// an alternative.
	CounterProposal string `json:"counter_proposal,omitempty"`
}

func (*NegotiationResponse) kind() Kind { return KindNegotiationResponse }

// ResolutionFound announces the outcome of a negotiation to its parties.
type ResolutionFound struct {
	NegotiationID string `json:"negotiation_id"`
	Resolution    string `json:"resolution"`
}

func (*ResolutionFound) kind() Kind { return KindResolutionFound }
