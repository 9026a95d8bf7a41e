package models

import (
	"testing"
	"time"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"in_progress is valid", TaskStatusInProgress, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"paused is valid", TaskStatusPaused, true},
		{"cancelled is valid", TaskStatusCancelled, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("unknown"), false},
		{"typo status is invalid", TaskStatus("completd"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	terminal := []TaskStatus{TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("TaskStatus(%q).Terminal() = false, want true", s)
		}
	}
	active := []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusPaused}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("TaskStatus(%q).Terminal() = true, want false", s)
		}
	}
}

func TestTask_SetStatus_CompletionTimestamp(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskStatusPending}

	task.SetStatus(TaskStatusInProgress)
	if task.CompletedAt != nil {
		t.Errorf("CompletedAt should be nil while in_progress, got %v", task.CompletedAt)
	}
	if task.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set after SetStatus")
	}

	task.SetStatus(TaskStatusCompleted)
	if task.CompletedAt == nil {
		t.Fatal("CompletedAt should be set when completed")
	}

	// Moving back to pending clears the completion stamp.
	task.SetStatus(TaskStatusPending)
	if task.CompletedAt != nil {
		t.Errorf("CompletedAt should be cleared when pending, got %v", task.CompletedAt)
	}

	task.SetStatus(TaskStatusFailed)
	if task.CompletedAt == nil {
		t.Fatal("CompletedAt should be set when failed")
	}
}

func TestTask_SetStatus_CancelledHasNoCompletionStamp(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskStatusInProgress}
	task.SetStatus(TaskStatusCancelled)
	if task.CompletedAt != nil {
		t.Errorf("CompletedAt should be nil for cancelled, got %v", task.CompletedAt)
	}
	if !task.Status.Terminal() {
		t.Error("cancelled task should be terminal")
	}
}

func TestTask_DefaultValues(t *testing.T) {
	task := Task{}

	if task.ID != "" {
		t.Errorf("Task.ID default should be empty string, got %q", task.ID)
	}
	if task.Status != "" {
		t.Errorf("Task.Status default should be empty string, got %q", task.Status)
	}
	if task.Dependencies != nil {
		t.Errorf("Task.Dependencies default should be nil, got %v", task.Dependencies)
	}
	if task.CompletedAt != nil {
		t.Errorf("Task.CompletedAt default should be nil, got %v", task.CompletedAt)
	}
	if !task.CreatedAt.IsZero() {
		t.Errorf("Task.CreatedAt default should be zero time, got %v", task.CreatedAt)
	}
	if task.RetryCount != 0 {
		t.Errorf("Task.RetryCount default should be 0, got %d", task.RetryCount)
	}
}

func TestTask_Fields(t *testing.T) {
	now := time.Now()
	task := Task{
		ID:                "task-123",
		Title:             "Index the corpus",
		Description:       "Build the search index",
		Status:            TaskStatusInProgress,
		Dependencies:      []string{"task-100", "task-101"},
		RequiredTools:     []string{"search", "filesystem"},
		AssignedTo:        "worker-789",
		Priority:          2,
		EstimatedDuration: 30 * time.Second,
		CreatedAt:         now,
		Metadata:          map[string]string{"origin": "api"},
	}

	if task.ID != "task-123" {
		t.Errorf("Task.ID = %q, want %q", task.ID, "task-123")
	}
	if len(task.Dependencies) != 2 {
		t.Errorf("Task.Dependencies length = %d, want 2", len(task.Dependencies))
	}
	if len(task.RequiredTools) != 2 {
		t.Errorf("Task.RequiredTools length = %d, want 2", len(task.RequiredTools))
	}
	if task.AssignedTo != "worker-789" {
		t.Errorf("Task.AssignedTo = %q, want %q", task.AssignedTo, "worker-789")
	}
	if task.EstimatedDuration != 30*time.Second {
		t.Errorf("Task.EstimatedDuration = %v, want 30s", task.EstimatedDuration)
	}
}
