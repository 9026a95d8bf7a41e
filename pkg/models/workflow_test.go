package models

import "testing"

func TestExecutionMode_Valid(t *testing.T) {
	tests := []struct {
		name string
		mode ExecutionMode
		want bool
	}{
		{"sequential is valid", ModeSequential, true},
		{"parallel is valid", ModeParallel, true},
		{"adaptive is valid", ModeAdaptive, true},
		{"empty string is invalid", ExecutionMode(""), false},
		{"unknown mode is invalid", ExecutionMode("turbo"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.Valid(); got != tt.want {
				t.Errorf("ExecutionMode(%q).Valid() = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestWorkflowStatus_Terminal(t *testing.T) {
	terminal := []WorkflowStatus{WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("WorkflowStatus(%q).Terminal() = false, want true", s)
		}
	}
	if WorkflowStatusPending.Terminal() {
		t.Error("pending should not be terminal")
	}
	if WorkflowStatusInProgress.Terminal() {
		t.Error("in_progress should not be terminal")
	}
}

func TestWorkflowExecution_AddWorker(t *testing.T) {
	wf := &WorkflowExecution{ID: "wf-1"}

	wf.AddWorker("w1")
	wf.AddWorker("w2")
	wf.AddWorker("w1")

	if len(wf.Workers) != 2 {
		t.Fatalf("Workers length = %d, want 2 (duplicates collapsed)", len(wf.Workers))
	}
	if wf.Workers[0] != "w1" || wf.Workers[1] != "w2" {
		t.Errorf("Workers = %v, want [w1 w2]", wf.Workers)
	}
}
