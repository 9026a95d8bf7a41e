package state

import (
	"io"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// WorkflowStore handles workflow-related persistence operations.
type WorkflowStore interface {
	SaveWorkflow(w *models.WorkflowExecution) error
	UpdateWorkflow(w *models.WorkflowExecution) error
	UpdateWorkflowStatus(id string, status models.WorkflowStatus) error
	GetWorkflow(id string) (*models.WorkflowExecution, error)
	ListRecentWorkflows(limit int) ([]models.WorkflowExecution, error)
	ActiveWorkflows() ([]models.WorkflowExecution, error)
}

// TaskStore handles task-related persistence operations.
type TaskStore interface {
	SaveTask(workflowID string, t *models.Task) error
	UpdateTask(t *models.Task) error
	ListWorkflowTasks(workflowID string) ([]models.Task, error)
}

// NegotiationStore handles negotiation outcome persistence.
type NegotiationStore interface {
	RecordNegotiation(n *models.NegotiationState) error
	ListRecentNegotiations(limit int) ([]models.NegotiationState, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for run history persistence.
// This interface allows the orchestrator to work with any history backend
// without depending on the concrete SQLite implementation.
// It composes focused sub-interfaces for better modularity.
type Store interface {
	io.Closer
	Migrator
	WorkflowStore
	TaskStore
	NegotiationStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store            = (*DB)(nil)
	_ Migrator         = (*DB)(nil)
	_ WorkflowStore    = (*DB)(nil)
	_ TaskStore        = (*DB)(nil)
	_ NegotiationStore = (*DB)(nil)
)
