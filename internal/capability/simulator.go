package capability

import (
	"context"
	"fmt"
	"time"
)

// simCharsPerToken approximates token usage from prompt length.
const simCharsPerToken = 4

var _ Invoker = (*Simulator)(nil)

// Simulator is a deterministic local invoker for tests and dry runs. It
// never contacts a provider: output and token usage are derived from the
// task itself, and failures are scripted per task ID.
type Simulator struct {
	// Latency is the simulated duration of each invocation.
	Latency time.Duration
	// FailTaskIDs maps task IDs to the error detail their invocation
	// should fail with.
	FailTaskIDs map[string]string

	tracker *TokenTracker
}

// NewSimulator creates a simulator with no latency and no scripted failures.
func NewSimulator() *Simulator {
	return &Simulator{tracker: NewTokenTracker()}
}

// Invoke simulates performing the task. It honors context cancellation
// during the configured latency window.
func (s *Simulator) Invoke(ctx context.Context, req Request) (*Result, error) {
	if req.Task == nil {
		return nil, fmt.Errorf("invoke: nil task")
	}

	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if detail, ok := s.FailTaskIDs[req.Task.ID]; ok {
		return nil, fmt.Errorf("task %s failed: %s", req.Task.ID, detail)
	}

	prompt := taskPrompt(req.Task)
	inputTokens := int64(len(prompt) / simCharsPerToken)

	workerName := "unassigned"
	if req.Worker != nil {
		workerName = req.Worker.Name
	}
	output := fmt.Sprintf("[simulated] %s completed %q", workerName, req.Task.Title)
	outputTokens := int64(len(output) / simCharsPerToken)

	if s.tracker != nil {
		s.tracker.Add(inputTokens, outputTokens)
	}

	model := "simulator"
	if req.Worker != nil && req.Worker.Model != "" {
		model = req.Worker.Model
	}

	return &Result{
		Output:       output,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Model:        model,
	}, nil
}

// Tracker returns the cumulative token tracker, nil for zero-value
// simulators constructed without NewSimulator.
func (s *Simulator) Tracker() *TokenTracker {
	return s.tracker
}
