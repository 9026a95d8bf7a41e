package orchestrator

import (
	"context"
	"sort"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// runSequential executes tasks one at a time in dependency order. Each pass
// walks the Kahn order and runs every task whose dependencies are complete;
// tasks that are not yet runnable are re-queued for the next pass. The loop
// ends when nothing remains or a full pass makes no progress (a failed or
// permanently deferred dependency), leaving the rest pending.
func (o *Orchestrator) runSequential(ctx context.Context, wf *models.WorkflowExecution, handle *graphHandle) error {
	order, err := handle.graph.TopologicalSort()
	if err != nil {
		return err
	}

	for {
		progressed := false
		remaining := 0

		for _, taskID := range o.runnablePass(handle, order) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if o.workflowCancelled(wf.ID) {
				return nil
			}
			if err := o.pause.WaitIfPaused(ctx); err != nil {
				return err
			}

			task := handle.graph.GetTask(taskID)
			if task == nil || o.taskTerminal(taskID) {
				continue
			}
			if !o.depsCompleted(handle, taskID) {
				remaining++
				continue
			}
			if o.runTask(ctx, wf, handle, task) {
				progressed = true
			} else {
				remaining++
			}
		}

		if remaining == 0 {
			return nil
		}
		if !progressed {
			debugLog("[sequential] workflow %s: %d tasks cannot run, ending passes", wf.ID, remaining)
			return nil
		}
	}
}

// runnablePass returns the IDs of non-terminal tasks for one pass, in Kahn
// order with higher priority first among equals.
func (o *Orchestrator) runnablePass(handle *graphHandle, order []string) []string {
	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	var pass []string
	for _, id := range order {
		if handle.graph.GetTask(id) == nil || o.taskTerminal(id) {
			continue
		}
		pass = append(pass, id)
	}

	sort.SliceStable(pass, func(i, j int) bool {
		a := handle.graph.GetTask(pass[i])
		b := handle.graph.GetTask(pass[j])
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return position[pass[i]] < position[pass[j]]
	})
	return pass
}

// depsCompleted reports whether every dependency of the task has completed.
func (o *Orchestrator) depsCompleted(handle *graphHandle, taskID string) bool {
	for _, depID := range handle.graph.GetDependencies(taskID) {
		status, ok := o.monitor.StatusOf(depID)
		if !ok || status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// taskTerminal reports whether the task has reached a terminal status.
func (o *Orchestrator) taskTerminal(taskID string) bool {
	status, ok := o.monitor.StatusOf(taskID)
	return ok && status.Terminal()
}
