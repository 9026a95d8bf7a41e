// Package orchestrator coordinates workers and workflows.
//
// The orchestrator package provides functionality for:
//   - Workflow submission: turning task specs into a validated dependency graph
//   - Scheduling: sequential, parallel, and adaptive execution modes
//   - Resource accounting: reserving and releasing ledger capacity per task
//   - Worker assignment: scoring and allocating workers to tasks
//
// Tasks are dispatched through a capability.Invoker, so the scheduler carries
// no provider-specific code. Progress is reported on a buffered event channel
// consumed by the TUI and the CLI.
//
// Example usage:
//
//	orch := orchestrator.New(orchestrator.RequiredConfig{Invoker: inv})
//	wf, estimate, err := orch.SubmitWorkflow(req)
//	err = orch.ExecuteWorkflow(ctx, wf.ID)
package orchestrator
