package state

import (
	"testing"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

func TestWorkflowRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	w := &models.WorkflowExecution{
		ID:          "wf-1",
		Name:        "release build",
		TaskIDs:     []string{"t1", "t2"},
		Status:      models.WorkflowStatusInProgress,
		Mode:        models.ModeParallel,
		MaxParallel: 3,
		CreatedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		StartedAt:   &started,
		TotalCost:   1.25,
		Workers:     []string{"w1", "w2"},
	}

	if err := db.SaveWorkflow(w); err != nil {
		t.Fatalf("SaveWorkflow failed: %v", err)
	}

	got, err := db.GetWorkflow("wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected workflow, got nil")
	}

	if got.Name != "release build" || got.Status != models.WorkflowStatusInProgress {
		t.Errorf("got %s/%s, want release build/in_progress", got.Name, got.Status)
	}
	if got.Mode != models.ModeParallel || got.MaxParallel != 3 {
		t.Errorf("mode = %s/%d, want parallel/3", got.Mode, got.MaxParallel)
	}
	if len(got.TaskIDs) != 2 || got.TaskIDs[0] != "t1" {
		t.Errorf("task ids = %v, want [t1 t2]", got.TaskIDs)
	}
	if len(got.Workers) != 2 {
		t.Errorf("workers = %v, want 2", got.Workers)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.CompletedAt != nil {
		t.Errorf("completed_at = %v, want nil", got.CompletedAt)
	}
	if got.TotalCost != 1.25 {
		t.Errorf("total cost = %v, want 1.25", got.TotalCost)
	}
}

func TestGetWorkflowMissing(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetWorkflow("ghost")
	if err != nil {
		t.Fatalf("GetWorkflow failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing workflow, got %+v", got)
	}
}

func TestUpdateWorkflow(t *testing.T) {
	db := setupTestDB(t)

	w := &models.WorkflowExecution{
		ID:        "wf-1",
		Name:      "release build",
		Status:    models.WorkflowStatusPending,
		Mode:      models.ModeSequential,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.SaveWorkflow(w); err != nil {
		t.Fatalf("SaveWorkflow failed: %v", err)
	}

	done := time.Now().UTC()
	w.Status = models.WorkflowStatusCompleted
	w.CompletedAt = &done
	w.TotalCost = 2.5
	w.Workers = []string{"w3"}
	if err := db.UpdateWorkflow(w); err != nil {
		t.Fatalf("UpdateWorkflow failed: %v", err)
	}

	got, err := db.GetWorkflow("wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow failed: %v", err)
	}
	if got.Status != models.WorkflowStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not persisted")
	}
	if got.TotalCost != 2.5 {
		t.Errorf("total cost = %v, want 2.5", got.TotalCost)
	}
	if len(got.Workers) != 1 || got.Workers[0] != "w3" {
		t.Errorf("workers = %v, want [w3]", got.Workers)
	}
}

func TestUpdateWorkflowStatus(t *testing.T) {
	db := setupTestDB(t)

	w := &models.WorkflowExecution{
		ID:        "wf-1",
		Name:      "release build",
		Status:    models.WorkflowStatusPending,
		Mode:      models.ModeSequential,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.SaveWorkflow(w); err != nil {
		t.Fatalf("SaveWorkflow failed: %v", err)
	}

	if err := db.UpdateWorkflowStatus("wf-1", models.WorkflowStatusCancelled); err != nil {
		t.Fatalf("UpdateWorkflowStatus failed: %v", err)
	}

	got, _ := db.GetWorkflow("wf-1")
	if got.Status != models.WorkflowStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestListRecentWorkflows(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"wf-a", "wf-b", "wf-c"} {
		w := &models.WorkflowExecution{
			ID:        id,
			Name:      id,
			Status:    models.WorkflowStatusCompleted,
			Mode:      models.ModeSequential,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.SaveWorkflow(w); err != nil {
			t.Fatalf("SaveWorkflow failed: %v", err)
		}
	}

	recent, err := db.ListRecentWorkflows(2)
	if err != nil {
		t.Fatalf("ListRecentWorkflows failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d workflows, want 2", len(recent))
	}
	if recent[0].ID != "wf-c" || recent[1].ID != "wf-b" {
		t.Errorf("order = [%s %s], want newest first [wf-c wf-b]", recent[0].ID, recent[1].ID)
	}
}

func TestActiveWorkflows(t *testing.T) {
	db := setupTestDB(t)

	statuses := map[string]models.WorkflowStatus{
		"wf-pending": models.WorkflowStatusPending,
		"wf-running": models.WorkflowStatusInProgress,
		"wf-done":    models.WorkflowStatusCompleted,
		"wf-failed":  models.WorkflowStatusFailed,
	}
	for id, status := range statuses {
		w := &models.WorkflowExecution{
			ID:        id,
			Name:      id,
			Status:    status,
			Mode:      models.ModeSequential,
			CreatedAt: time.Now().UTC(),
		}
		if err := db.SaveWorkflow(w); err != nil {
			t.Fatalf("SaveWorkflow failed: %v", err)
		}
	}

	active, err := db.ActiveWorkflows()
	if err != nil {
		t.Fatalf("ActiveWorkflows failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("got %d active workflows, want 2", len(active))
	}
	for _, w := range active {
		if w.Status.Terminal() {
			t.Errorf("workflow %s is terminal, should not be listed", w.ID)
		}
	}
}

func TestTaskRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	task := &models.Task{
		ID:           "t1",
		Title:        "compile",
		Description:  "compile the tree",
		Status:       models.TaskStatusPending,
		Dependencies: []string{"t0"},
		AssignedTo:   "w1",
		Priority:     5,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := db.SaveTask("wf-1", task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	task.SetStatus(models.TaskStatusCompleted)
	task.Result = "built 14 packages"
	task.RetryCount = 1
	if err := db.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	tasks, err := db.ListWorkflowTasks("wf-1")
	if err != nil {
		t.Fatalf("ListWorkflowTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}

	got := tasks[0]
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Result != "built 14 packages" {
		t.Errorf("result = %q, want persisted result", got.Result)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got.RetryCount)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "t0" {
		t.Errorf("dependencies = %v, want [t0]", got.Dependencies)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not persisted")
	}
}

func TestRecordNegotiationUpsert(t *testing.T) {
	db := setupTestDB(t)

	n := &models.NegotiationState{
		ID:          "neg-1",
		ResourceID:  "worker-slots",
		InitiatorID: "w1",
		Parties:     []string{"w1", "w2"},
		Status:      models.NegotiationOpen,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := db.RecordNegotiation(n); err != nil {
		t.Fatalf("RecordNegotiation failed: %v", err)
	}

	// Re-record after resolution: same ID, updated outcome.
	n.Status = models.NegotiationResolved
	n.Resolution = "time-sharing between w1 and w2"
	n.UpdatedAt = time.Now().UTC()
	if err := db.RecordNegotiation(n); err != nil {
		t.Fatalf("RecordNegotiation upsert failed: %v", err)
	}

	recent, err := db.ListRecentNegotiations(10)
	if err != nil {
		t.Fatalf("ListRecentNegotiations failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d negotiations, want 1 (upsert)", len(recent))
	}
	if recent[0].Status != models.NegotiationResolved {
		t.Errorf("status = %s, want resolved", recent[0].Status)
	}
	if recent[0].Resolution != "time-sharing between w1 and w2" {
		t.Errorf("resolution = %q not persisted", recent[0].Resolution)
	}
	if len(recent[0].Parties) != 2 {
		t.Errorf("parties = %v, want 2", recent[0].Parties)
	}
}
