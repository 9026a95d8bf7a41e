package orchestrator

import (
	"errors"
	"testing"

	"github.com/jairodriguez/autonomica/internal/graph"
	"github.com/jairodriguez/autonomica/pkg/models"
)

func TestSubmitWorkflowResolvesTitleDependencies(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	wf, est, err := o.SubmitWorkflow(WorkflowRequest{
		Name: "pipeline",
		Mode: models.ModeSequential,
		Tasks: []TaskSpec{
			{Title: "fetch"},
			{Title: "parse", Dependencies: []string{"fetch"}},
			{Title: "report", Dependencies: []string{"parse"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Status != models.WorkflowStatusPending || len(wf.TaskIDs) != 3 {
		t.Errorf("workflow = %+v, want pending with 3 tasks", wf)
	}
	if est == nil || est.Tokens != 3*estBaseTokens {
		t.Errorf("estimate = %+v, want %d tokens", est, 3*estBaseTokens)
	}

	tasks := o.WorkflowTasks(wf.ID)
	if len(tasks[1].Dependencies) != 1 || tasks[1].Dependencies[0] != tasks[0].ID {
		t.Errorf("parse dependencies = %v, want [%s]", tasks[1].Dependencies, tasks[0].ID)
	}
	if len(tasks[2].Dependencies) != 1 || tasks[2].Dependencies[0] != tasks[1].ID {
		t.Errorf("report dependencies = %v, want [%s]", tasks[2].Dependencies, tasks[1].ID)
	}
}

func TestSubmitWorkflowResolvesIndexDependencies(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	wf, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{
			{Title: "first"},
			{Title: "second", Dependencies: []string{"0"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tasks := o.WorkflowTasks(wf.ID)
	if len(tasks[1].Dependencies) != 1 || tasks[1].Dependencies[0] != tasks[0].ID {
		t.Errorf("index dependency resolved to %v, want [%s]", tasks[1].Dependencies, tasks[0].ID)
	}
}

func TestSubmitWorkflowTitleWinsOverIndex(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	// A task literally titled "1": references to "1" mean that task, not
	// the submission index.
	wf, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{
			{Title: "1"},
			{Title: "other"},
			{Title: "last", Dependencies: []string{"1"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tasks := o.WorkflowTasks(wf.ID)
	if tasks[2].Dependencies[0] != tasks[0].ID {
		t.Errorf("dependency %q resolved to %s, want the task titled \"1\" (%s)", "1", tasks[2].Dependencies[0], tasks[0].ID)
	}
}

func TestSubmitWorkflowAmbiguousTitle(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	_, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{
			{Title: "dup"},
			{Title: "dup"},
			{Title: "needs", Dependencies: []string{"dup"}},
		},
	})
	if !errors.Is(err, graph.ErrUnknownDependency) {
		t.Errorf("ambiguous title error = %v, want ErrUnknownDependency", err)
	}
}

func TestSubmitWorkflowUnknownDependency(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	_, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{{Title: "a", Dependencies: []string{"nope"}}, {Title: "b"}},
	})
	if !errors.Is(err, graph.ErrUnknownDependency) {
		t.Errorf("unknown dependency error = %v, want ErrUnknownDependency", err)
	}

	_, _, err = o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{{Title: "a", Dependencies: []string{"7"}}, {Title: "b"}},
	})
	if !errors.Is(err, graph.ErrUnknownDependency) {
		t.Errorf("out-of-range index error = %v, want ErrUnknownDependency", err)
	}
}

func TestSubmitWorkflowSelfDependency(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	_, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{{Title: "loop", Dependencies: []string{"loop"}}},
	})
	if !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("self-dependency error = %v, want ErrCycleDetected", err)
	}
}

func TestSubmitWorkflowCycle(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	_, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{
			{Title: "a", Dependencies: []string{"b"}},
			{Title: "b", Dependencies: []string{"a"}},
		},
	})
	if !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("cycle error = %v, want ErrCycleDetected", err)
	}
	// Nothing from the rejected submission may linger.
	if o.monitor.Count() != 0 {
		t.Errorf("rejected submission registered %d tasks", o.monitor.Count())
	}
}

func TestSubmitWorkflowDefaults(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	wf, _, err := o.SubmitWorkflow(WorkflowRequest{Tasks: []TaskSpec{{Title: "solo"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Name != "workflow" {
		t.Errorf("default name = %q, want %q", wf.Name, "workflow")
	}
	if wf.Mode != models.ModeAdaptive {
		t.Errorf("default mode = %q, want adaptive", wf.Mode)
	}
}

func TestSubmitWorkflowRejectsBadInput(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	if _, _, err := o.SubmitWorkflow(WorkflowRequest{}); err == nil {
		t.Error("empty submission accepted")
	}
	if _, _, err := o.SubmitWorkflow(WorkflowRequest{
		Mode:  models.ExecutionMode("turbo"),
		Tasks: []TaskSpec{{Title: "a"}},
	}); err == nil {
		t.Error("invalid mode accepted")
	}
	if _, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{{Title: ""}},
	}); err == nil {
		t.Error("untitled task accepted")
	}
}

func TestSubmitWorkflowAfterStop(t *testing.T) {
	o := New(RequiredConfig{})
	o.Stop()

	_, _, err := o.SubmitWorkflow(WorkflowRequest{Tasks: []TaskSpec{{Title: "late"}}})
	if !errors.Is(err, ErrOrchestratorStopped) {
		t.Errorf("submit after stop = %v, want ErrOrchestratorStopped", err)
	}
}

func TestSubmitWorkflowAgentTypeAnnotation(t *testing.T) {
	o := New(RequiredConfig{})
	defer o.Stop()

	wf, _, err := o.SubmitWorkflow(WorkflowRequest{
		Tasks: []TaskSpec{{Title: "dig", AgentType: "research", SubTasks: []string{"find sources", "summarize"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task := o.WorkflowTasks(wf.ID)[0]
	if task.Metadata["agent_type"] != "research" {
		t.Errorf("agent_type = %q, want research", task.Metadata["agent_type"])
	}
	if len(task.SubTasks) != 2 || task.SubTasks[0].Title != "find sources" {
		t.Errorf("subtasks = %+v", task.SubTasks)
	}
}
