package orchestrator

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jairodriguez/autonomica/internal/graph"
	"github.com/jairodriguez/autonomica/pkg/models"
)

// WorkflowRequest is the inbound workflow submission shape.
type WorkflowRequest struct {
	// Name labels the workflow in status output and history.
	Name string
	// Tasks are the units of work, in submission order.
	Tasks []TaskSpec
	// Mode selects the scheduling strategy; empty means adaptive.
	Mode models.ExecutionMode
	// MaxParallel bounds per-level fan-out; zero uses the configured default.
	MaxParallel int
	// Metadata carries free-form annotations onto the workflow.
	Metadata map[string]string
}

// TaskSpec describes one task in a submission.
type TaskSpec struct {
	// Title is the short task description. Required, and how other tasks
	// reference this one as a dependency.
	Title string
	// Description is the detailed work statement.
	Description string
	// AgentType is an optional worker role preference.
	AgentType string
	// Dependencies reference earlier tasks by title or zero-based index.
	Dependencies []string
	// Priority orders tasks within a scheduling pass; higher runs first.
	Priority int
	// EstimatedDuration feeds the workflow duration estimate.
	EstimatedDuration time.Duration
	// RequiredTools lists tool names the assigned worker must declare.
	RequiredTools []string
	// SubTasks are titles of decomposed units owned by this task.
	SubTasks []string
}

// graphHandle pairs a workflow's dependency graph with its tasks in
// submission order.
type graphHandle struct {
	graph *graph.DependencyGraph
	tasks []*models.Task
}

// SubmitWorkflow validates a submission, resolves dependency references,
// builds the dependency graph, and registers the workflow for execution.
// Graph problems (unknown references, cycles) fail the submission before
// anything executes. Returns the workflow record and a pre-run estimate.
func (o *Orchestrator) SubmitWorkflow(req WorkflowRequest) (*models.WorkflowExecution, *Estimate, error) {
	o.mu.RLock()
	stopped := o.stopped
	o.mu.RUnlock()
	if stopped {
		return nil, nil, ErrOrchestratorStopped
	}

	if len(req.Tasks) == 0 {
		return nil, nil, errors.New("workflow has no tasks")
	}
	name := req.Name
	if name == "" {
		name = "workflow"
	}
	mode := req.Mode
	if mode == "" {
		mode = models.ModeAdaptive
	}
	if !mode.Valid() {
		return nil, nil, fmt.Errorf("invalid execution mode %q", req.Mode)
	}

	now := time.Now()
	tasks := make([]*models.Task, 0, len(req.Tasks))
	byTitle := make(map[string][]int, len(req.Tasks))
	for i, spec := range req.Tasks {
		if spec.Title == "" {
			return nil, nil, fmt.Errorf("task %d has no title", i)
		}
		byTitle[spec.Title] = append(byTitle[spec.Title], i)

		task := &models.Task{
			ID:                uuid.New().String()[:8],
			Title:             spec.Title,
			Description:       spec.Description,
			Status:            models.TaskStatusPending,
			RequiredTools:     spec.RequiredTools,
			Priority:          spec.Priority,
			EstimatedDuration: spec.EstimatedDuration,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if spec.AgentType != "" {
			task.Metadata = map[string]string{"agent_type": spec.AgentType}
		}
		for j, title := range spec.SubTasks {
			task.SubTasks = append(task.SubTasks, models.SubTask{
				ID:     fmt.Sprintf("%s-sub-%d", task.ID, j),
				Title:  title,
				Status: models.TaskStatusPending,
			})
		}
		tasks = append(tasks, task)
	}

	// Resolve dependency references to the generated task IDs.
	for i, spec := range req.Tasks {
		for _, ref := range spec.Dependencies {
			idx, err := resolveTaskRef(ref, byTitle, len(tasks))
			if err != nil {
				return nil, nil, fmt.Errorf("task %q: %w", spec.Title, err)
			}
			if idx == i {
				return nil, nil, fmt.Errorf("task %q depends on itself: %w", spec.Title, graph.ErrCycleDetected)
			}
			tasks[i].Dependencies = append(tasks[i].Dependencies, tasks[idx].ID)
		}
	}

	g := graph.New()
	g.SetDebugLog(debugLog)
	if err := g.Build(tasks); err != nil {
		return nil, nil, fmt.Errorf("workflow %q: %w", name, err)
	}
	handle := &graphHandle{graph: g, tasks: tasks}

	taskIDs := make([]string, len(tasks))
	for i, task := range tasks {
		taskIDs[i] = task.ID
	}

	wf := &models.WorkflowExecution{
		ID:          uuid.New().String()[:8],
		Name:        name,
		TaskIDs:     taskIDs,
		Status:      models.WorkflowStatusPending,
		Mode:        mode,
		MaxParallel: req.MaxParallel,
		CreatedAt:   now,
		Metadata:    req.Metadata,
	}

	o.mu.Lock()
	o.workflows[wf.ID] = wf
	o.graphs[wf.ID] = handle
	for _, task := range tasks {
		o.taskIndex[task.ID] = wf.ID
	}
	o.mu.Unlock()

	for _, task := range tasks {
		o.monitor.Register(task)
	}

	if o.store != nil {
		if err := o.store.SaveWorkflow(wf); err != nil {
			debugLog("[orchestrator] save workflow %s: %v", wf.ID, err)
		}
		for _, task := range tasks {
			if err := o.store.SaveTask(wf.ID, task); err != nil {
				debugLog("[orchestrator] save task %s: %v", task.ID, err)
			}
		}
	}

	maxParallel := wf.MaxParallel
	if maxParallel <= 0 {
		maxParallel = o.cfg.Orchestrator.MaxParallelTasks
	}
	levels, err := g.Levels()
	if err != nil {
		// Build already rejected cycles; this cannot fire on a built graph.
		return nil, nil, err
	}
	estimate := o.estimateWorkflow(tasks, levels, o.effectiveMode(wf, handle), maxParallel)

	o.logger.Log("[orchestrator] workflow %s submitted: %d tasks, mode %s, ~%d tokens", wf.ID, len(tasks), mode, estimate.Tokens)
	o.emit(Event{
		Type:       EventWorkflowSubmitted,
		WorkflowID: wf.ID,
		Message:    fmt.Sprintf("workflow %s submitted with %d tasks", name, len(tasks)),
		Timestamp:  time.Now(),
	})

	return wf, estimate, nil
}

// resolveTaskRef maps a dependency reference (task title, or zero-based
// index into the submission order) to the task's position. Titles win over
// indexes; an ambiguous or unmatched reference is a graph error.
func resolveTaskRef(ref string, byTitle map[string][]int, count int) (int, error) {
	if positions, ok := byTitle[ref]; ok {
		if len(positions) > 1 {
			return 0, fmt.Errorf("dependency %q is ambiguous: %w", ref, graph.ErrUnknownDependency)
		}
		return positions[0], nil
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 0 || idx >= count {
			return 0, fmt.Errorf("dependency index %d out of range: %w", idx, graph.ErrUnknownDependency)
		}
		return idx, nil
	}
	return 0, fmt.Errorf("dependency %q matches no task: %w", ref, graph.ErrUnknownDependency)
}

// Workflow returns the workflow record for an ID, or nil if unknown.
func (o *Orchestrator) Workflow(id string) *models.WorkflowExecution {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.workflows[id]
}

// WorkflowTasks returns the workflow's tasks in submission order, or nil if
// the workflow is unknown.
func (o *Orchestrator) WorkflowTasks(id string) []*models.Task {
	o.mu.RLock()
	defer o.mu.RUnlock()
	handle, ok := o.graphs[id]
	if !ok {
		return nil
	}
	out := make([]*models.Task, len(handle.tasks))
	copy(out, handle.tasks)
	return out
}
