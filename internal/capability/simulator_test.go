package capability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

func TestSimulatorInvoke(t *testing.T) {
	sim := NewSimulator()
	task := &models.Task{ID: "t1", Title: "write parser", Description: "tokenize the input"}
	worker := &models.Worker{ID: "w1", Name: "Ada", Model: "claude-sonnet-4-5-20250929"}

	result, err := sim.Invoke(context.Background(), Request{Task: task, Worker: worker})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Output, "Ada") || !strings.Contains(result.Output, "write parser") {
		t.Errorf("output = %q, want worker and task named", result.Output)
	}
	if result.InputTokens <= 0 || result.OutputTokens <= 0 {
		t.Errorf("tokens = %d/%d, want positive", result.InputTokens, result.OutputTokens)
	}
	if result.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("model = %q, want worker's model", result.Model)
	}
}

func TestSimulatorDeterministicTokens(t *testing.T) {
	sim := NewSimulator()
	task := &models.Task{ID: "t1", Title: "write parser", Description: "tokenize the input"}

	first, err := sim.Invoke(context.Background(), Request{Task: task})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := sim.Invoke(context.Background(), Request{Task: task})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.InputTokens != second.InputTokens || first.OutputTokens != second.OutputTokens {
		t.Errorf("token usage changed across identical invocations: %+v vs %+v", first, second)
	}
}

func TestSimulatorScriptedFailure(t *testing.T) {
	sim := NewSimulator()
	sim.FailTaskIDs = map[string]string{"t2": "disk full"}

	_, err := sim.Invoke(context.Background(), Request{Task: &models.Task{ID: "t2", Title: "save"}})
	if err == nil {
		t.Fatal("expected scripted failure")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error = %v, want scripted detail", err)
	}

	// Other tasks are unaffected.
	if _, err := sim.Invoke(context.Background(), Request{Task: &models.Task{ID: "t3", Title: "load"}}); err != nil {
		t.Errorf("unexpected error for unscripted task: %v", err)
	}
}

func TestSimulatorHonorsCancellation(t *testing.T) {
	sim := NewSimulator()
	sim.Latency = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := sim.Invoke(ctx, Request{Task: &models.Task{ID: "t1", Title: "slow"}})
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %s, want immediate return", elapsed)
	}
}

func TestSimulatorTracksUsage(t *testing.T) {
	sim := NewSimulator()
	task := &models.Task{ID: "t1", Title: "write parser"}

	if _, err := sim.Invoke(context.Background(), Request{Task: task}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := sim.Invoke(context.Background(), Request{Task: task}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sim.Tracker().Calls(); got != 2 {
		t.Errorf("Calls() = %d, want 2", got)
	}
	in, out := sim.Tracker().Total()
	if in <= 0 || out <= 0 {
		t.Errorf("Total() = %d/%d, want positive", in, out)
	}
}

func TestTaskPromptIncludesSubtasks(t *testing.T) {
	task := &models.Task{
		ID:            "t1",
		Title:         "build service",
		Description:   "the main service",
		RequiredTools: []string{"docker"},
		SubTasks: []models.SubTask{
			{Title: "scaffold", Description: "lay out directories"},
			{Title: "wire routes"},
		},
	}

	prompt := taskPrompt(task)
	for _, want := range []string{"build service", "the main service", "docker", "scaffold", "wire routes"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestPersonaPrompt(t *testing.T) {
	worker := &models.Worker{
		Name:        "Ada",
		Role:        "backend engineer",
		Description: "Owns service internals.",
		Tools:       []string{"git", "docker"},
	}

	prompt := personaPrompt(worker)
	for _, want := range []string{"Ada", "backend engineer", "git, docker"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("persona missing %q:\n%s", want, prompt)
		}
	}

	if got := personaPrompt(nil); got == "" {
		t.Error("nil worker should still produce a generic persona")
	}
}
