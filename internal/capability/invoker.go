// Package capability abstracts how workers perform tasks. An Invoker takes
// a task and the worker assigned to it and produces a result plus token
// usage; the orchestrator never talks to a model provider directly.
package capability

import (
	"context"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// Request describes a single task invocation.
type Request struct {
	// Task is the work to perform.
	Task *models.Task
	// Worker is the assigned worker; its role and model shape the call.
	Worker *models.Worker
	// System overrides the worker persona prompt when non-empty.
	System string
}

// Result is the outcome of a successful invocation.
type Result struct {
	// Output is the worker's produced result text.
	Output string
	// InputTokens and OutputTokens are the usage reported by the provider.
	InputTokens  int64
	OutputTokens int64
	// Model is the model that actually served the request.
	Model string
}

// Invoker performs task invocations. Implementations must honor context
// cancellation and return an error for any failed invocation.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}
