package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// Workflow CRUD operations

// SaveWorkflow inserts a workflow record.
func (db *DB) SaveWorkflow(w *models.WorkflowExecution) error {
	taskIDs, _ := json.Marshal(w.TaskIDs)
	workers, _ := json.Marshal(w.Workers)

	_, err := db.Exec(`
		INSERT INTO workflows (id, name, status, mode, max_parallel, task_ids, workers, total_cost, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, string(w.Status), string(w.Mode), w.MaxParallel, string(taskIDs), string(workers),
		w.TotalCost, formatTime(w.CreatedAt), nullableTimeString(w.StartedAt), nullableTimeString(w.CompletedAt))
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// UpdateWorkflow updates all mutable workflow fields.
func (db *DB) UpdateWorkflow(w *models.WorkflowExecution) error {
	taskIDs, _ := json.Marshal(w.TaskIDs)
	workers, _ := json.Marshal(w.Workers)

	_, err := db.Exec(`
		UPDATE workflows SET name = ?, status = ?, mode = ?, max_parallel = ?, task_ids = ?, workers = ?,
			total_cost = ?, started_at = ?, completed_at = ?
		WHERE id = ?
	`, w.Name, string(w.Status), string(w.Mode), w.MaxParallel, string(taskIDs), string(workers),
		w.TotalCost, nullableTimeString(w.StartedAt), nullableTimeString(w.CompletedAt), w.ID)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	return nil
}

// UpdateWorkflowStatus updates only the status column.
func (db *DB) UpdateWorkflowStatus(id string, status models.WorkflowStatus) error {
	_, err := db.Exec("UPDATE workflows SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("update workflow status: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID. Returns nil when not found.
func (db *DB) GetWorkflow(id string) (*models.WorkflowExecution, error) {
	row := db.QueryRow(`
		SELECT id, name, status, mode, max_parallel, task_ids, workers, total_cost, created_at, started_at, completed_at
		FROM workflows WHERE id = ?
	`, id)

	w, err := scanWorkflowRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return w, nil
}

// ListRecentWorkflows lists the most recently created workflows.
func (db *DB) ListRecentWorkflows(limit int) ([]models.WorkflowExecution, error) {
	rows, err := db.Query(`
		SELECT id, name, status, mode, max_parallel, task_ids, workers, total_cost, created_at, started_at, completed_at
		FROM workflows ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent workflows: %w", err)
	}
	defer rows.Close()

	return scanWorkflows(rows)
}

// ActiveWorkflows lists workflows that have not reached a terminal status.
func (db *DB) ActiveWorkflows() ([]models.WorkflowExecution, error) {
	rows, err := db.Query(`
		SELECT id, name, status, mode, max_parallel, task_ids, workers, total_cost, created_at, started_at, completed_at
		FROM workflows WHERE status IN ('pending', 'in_progress') ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}
	defer rows.Close()

	return scanWorkflows(rows)
}

// Task CRUD operations

// SaveTask inserts a task record under the given workflow.
func (db *DB) SaveTask(workflowID string, t *models.Task) error {
	deps, _ := json.Marshal(t.Dependencies)

	_, err := db.Exec(`
		INSERT INTO tasks (id, workflow_id, title, description, status, dependencies, assigned_to, priority, retry_count, result, error, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, workflowID, t.Title, t.Description, string(t.Status), string(deps), t.AssignedTo,
		t.Priority, t.RetryCount, t.Result, t.Error, formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		nullableTimeString(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// UpdateTask updates all mutable task fields.
func (db *DB) UpdateTask(t *models.Task) error {
	deps, _ := json.Marshal(t.Dependencies)

	_, err := db.Exec(`
		UPDATE tasks SET title = ?, description = ?, status = ?, dependencies = ?, assigned_to = ?,
			priority = ?, retry_count = ?, result = ?, error = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, t.Title, t.Description, string(t.Status), string(deps), t.AssignedTo, t.Priority, t.RetryCount,
		t.Result, t.Error, formatTime(t.UpdatedAt), nullableTimeString(t.CompletedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListWorkflowTasks lists the tasks recorded for a workflow in creation order.
func (db *DB) ListWorkflowTasks(workflowID string) ([]models.Task, error) {
	rows, err := db.Query(`
		SELECT id, title, description, status, dependencies, assigned_to, priority, retry_count, result, error, created_at, updated_at, completed_at
		FROM tasks WHERE workflow_id = ? ORDER BY created_at, id
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list workflow tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var description, deps, assignedTo, result, taskErr sql.NullString
		var createdAt string
		var updatedAt, completedAt sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &description, &t.Status, &deps, &assignedTo,
			&t.Priority, &t.RetryCount, &result, &taskErr, &createdAt, &updatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if description.Valid {
			t.Description = description.String
		}
		if deps.Valid {
			json.Unmarshal([]byte(deps.String), &t.Dependencies)
		}
		if assignedTo.Valid {
			t.AssignedTo = assignedTo.String
		}
		if result.Valid {
			t.Result = result.String
		}
		if taskErr.Valid {
			t.Error = taskErr.String
		}
		t.CreatedAt, _ = parseTime(createdAt)
		if ts := parseNullableTime(updatedAt); ts != nil {
			t.UpdatedAt = *ts
		}
		t.CompletedAt = parseNullableTime(completedAt)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Negotiation history

// RecordNegotiation upserts a negotiation record. Message history stays in
// memory; only the outcome is persisted.
func (db *DB) RecordNegotiation(n *models.NegotiationState) error {
	parties, _ := json.Marshal(n.Parties)

	_, err := db.Exec(`
		INSERT OR REPLACE INTO negotiations (id, resource_id, initiator_id, parties, status, resolution, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.ResourceID, n.InitiatorID, string(parties), string(n.Status), n.Resolution,
		n.FailureReason, formatTime(n.CreatedAt), formatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("record negotiation: %w", err)
	}
	return nil
}

// ListRecentNegotiations lists the most recently updated negotiations.
func (db *DB) ListRecentNegotiations(limit int) ([]models.NegotiationState, error) {
	rows, err := db.Query(`
		SELECT id, resource_id, initiator_id, parties, status, resolution, failure_reason, created_at, updated_at
		FROM negotiations ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent negotiations: %w", err)
	}
	defer rows.Close()

	var negotiations []models.NegotiationState
	for rows.Next() {
		var n models.NegotiationState
		var parties, resolution, failureReason sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&n.ID, &n.ResourceID, &n.InitiatorID, &parties, &n.Status,
			&resolution, &failureReason, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan negotiation: %w", err)
		}
		if parties.Valid {
			json.Unmarshal([]byte(parties.String), &n.Parties)
		}
		if resolution.Valid {
			n.Resolution = resolution.String
		}
		if failureReason.Valid {
			n.FailureReason = failureReason.String
		}
		n.CreatedAt, _ = parseTime(createdAt)
		n.UpdatedAt, _ = parseTime(updatedAt)
		negotiations = append(negotiations, n)
	}
	return negotiations, nil
}

// scanWorkflowRow scans one workflow row via the given scan function.
func scanWorkflowRow(scan func(...any) error) (*models.WorkflowExecution, error) {
	var w models.WorkflowExecution
	var taskIDs, workers sql.NullString
	var createdAt string
	var startedAt, completedAt sql.NullString
	if err := scan(&w.ID, &w.Name, &w.Status, &w.Mode, &w.MaxParallel, &taskIDs, &workers,
		&w.TotalCost, &createdAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	if taskIDs.Valid {
		json.Unmarshal([]byte(taskIDs.String), &w.TaskIDs)
	}
	if workers.Valid {
		json.Unmarshal([]byte(workers.String), &w.Workers)
	}
	w.CreatedAt, _ = parseTime(createdAt)
	w.StartedAt = parseNullableTime(startedAt)
	w.CompletedAt = parseNullableTime(completedAt)
	return &w, nil
}

// scanWorkflows scans workflow rows into a slice.
func scanWorkflows(rows *sql.Rows) ([]models.WorkflowExecution, error) {
	var workflows []models.WorkflowExecution
	for rows.Next() {
		w, err := scanWorkflowRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, *w)
	}
	return workflows, nil
}

// nullableTimeString formats an optional time for SQLite storage.
func nullableTimeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
