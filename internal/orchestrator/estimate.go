package orchestrator

import (
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// Estimation constants. Tuned against observed usage; change here, not inline.
const (
	// estBaseTokens is the floor for any task invocation.
	estBaseTokens = 500
	// estCharsPerToken converts description length to tokens.
	estCharsPerToken = 4
	// estTokensPerTool is the prompt overhead per required tool.
	estTokensPerTool = 200
	// estTokensPerSubTask is the prompt overhead per subtask.
	estTokensPerSubTask = 300
	// defaultTaskDuration is assumed when a task carries no estimate.
	defaultTaskDuration = 30 * time.Second
)

// Estimate is the projected footprint of a workflow before execution.
type Estimate struct {
	// Tokens is the projected total token consumption.
	Tokens int64
	// Cost is the projected dollar cost.
	Cost float64
	// Duration is the projected wall-clock time under the chosen mode.
	Duration time.Duration
}

// EstimateTaskTokens projects the token consumption of a single task from
// its description length, required tools, and subtasks.
func EstimateTaskTokens(task *models.Task) int64 {
	tokens := int64(estBaseTokens)
	tokens += int64(len(task.Description) / estCharsPerToken)
	tokens += int64(len(task.RequiredTools) * estTokensPerTool)
	tokens += int64(len(task.SubTasks) * estTokensPerSubTask)
	return tokens
}

// taskDuration returns the task's declared duration estimate or the default.
func taskDuration(task *models.Task) time.Duration {
	if task.EstimatedDuration > 0 {
		return task.EstimatedDuration
	}
	return defaultTaskDuration
}

// estimateWorkflow projects tokens, cost, and duration for a set of tasks
// under the given mode. Parallel duration accounts for level fan-out bounded
// by maxParallel; sequential duration is the plain sum.
func (o *Orchestrator) estimateWorkflow(tasks []*models.Task, levels [][]*models.Task, mode models.ExecutionMode, maxParallel int) *Estimate {
	var tokens int64
	for _, task := range tasks {
		tokens += EstimateTaskTokens(task)
	}

	// Half in, half out is close enough for a pre-run projection.
	cost := o.costs.TokenCost(o.defaultModel, tokens/2, tokens-tokens/2)

	var duration time.Duration
	switch mode {
	case models.ModeParallel:
		if maxParallel <= 0 {
			maxParallel = defaultMaxParallel
		}
		for _, level := range levels {
			var longest time.Duration
			for _, task := range level {
				if d := taskDuration(task); d > longest {
					longest = d
				}
			}
			waves := (len(level) + maxParallel - 1) / maxParallel
			duration += time.Duration(waves) * longest
		}
	default:
		for _, task := range tasks {
			duration += taskDuration(task)
		}
	}

	return &Estimate{Tokens: tokens, Cost: cost, Duration: duration}
}
