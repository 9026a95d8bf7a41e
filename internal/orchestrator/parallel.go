package orchestrator

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// runParallel executes tasks level by level. Within a level tasks fan out
// concurrently, bounded by the max-parallel semaphore, and the driver waits
// for the whole level before advancing. A task failure never aborts its
// siblings; dependents of a failed task simply never become runnable.
// Deferred tasks are retried by another sweep over the levels until a sweep
// makes no progress.
func (o *Orchestrator) runParallel(ctx context.Context, wf *models.WorkflowExecution, handle *graphHandle) error {
	levels, err := handle.graph.Levels()
	if err != nil {
		return err
	}

	maxParallel := wf.MaxParallel
	if maxParallel <= 0 {
		maxParallel = o.cfg.Orchestrator.MaxParallelTasks
	}
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}

	for {
		var progressed atomic.Int64
		remaining := 0

		for levelIdx, level := range levels {
			if err := ctx.Err(); err != nil {
				return err
			}
			if o.workflowCancelled(wf.ID) {
				return nil
			}
			if err := o.pause.WaitIfPaused(ctx); err != nil {
				return err
			}

			runnable := o.runnableLevel(handle, level)
			if len(runnable) == 0 {
				continue
			}

			debugLog("[parallel] workflow %s: level %d dispatching %d tasks (limit %d)", wf.ID, levelIdx, len(runnable), maxParallel)

			// Fan out, bounded by the semaphore; fan in on the WaitGroup.
			sem := make(chan struct{}, maxParallel)
			var wg sync.WaitGroup
			for _, task := range runnable {
				wg.Add(1)
				go func(task *models.Task) {
					defer wg.Done()
					sem <- struct{}{}
					defer func() { <-sem }()

					if ctx.Err() != nil || o.workflowCancelled(wf.ID) {
						return
					}
					if o.runTask(ctx, wf, handle, task) {
						progressed.Add(1)
					}
				}(task)
			}
			wg.Wait()
		}

		for _, level := range levels {
			for _, task := range level {
				if !o.taskTerminal(task.ID) {
					remaining++
				}
			}
		}
		if remaining == 0 {
			return nil
		}
		if progressed.Load() == 0 {
			debugLog("[parallel] workflow %s: %d tasks cannot run, ending sweeps", wf.ID, remaining)
			return nil
		}
	}
}

// runnableLevel filters a level to tasks whose dependencies completed,
// ordered with higher priority first.
func (o *Orchestrator) runnableLevel(handle *graphHandle, level []*models.Task) []*models.Task {
	var runnable []*models.Task
	for _, task := range level {
		if o.taskTerminal(task.ID) {
			continue
		}
		if !o.depsCompleted(handle, task.ID) {
			continue
		}
		runnable = append(runnable, task)
	}
	sort.SliceStable(runnable, func(i, j int) bool {
		return runnable[i].Priority > runnable[j].Priority
	})
	return runnable
}
