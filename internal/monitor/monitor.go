// Package monitor keeps the registry of all known tasks and applies status
// updates reported by workers. The scheduler consults it to check
// dependency satisfaction.
package monitor

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// ErrUnknownTask indicates a status update referenced an unregistered task.
var ErrUnknownTask = errors.New("unknown task")

// ErrInvalidStatus indicates a status update carried a value outside the
// task status enum.
var ErrInvalidStatus = errors.New("invalid task status")

// Registry maps task ID to task. All mutation goes through status updates
// so validation happens in one place.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// New creates an empty task registry.
func New() *Registry {
	return &Registry{tasks: make(map[string]*models.Task)}
}

// Register adds a task to the registry. Registering an already-known ID is
// a warning, not an overwrite.
func (r *Registry) Register(task *models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		log.Printf("[monitor] warning: task %s already registered, keeping existing entry", task.ID)
		return
	}
	r.tasks[task.ID] = task
}

// ApplyStatusUpdate validates and applies a status change. The detail lands
// in Result for a completed task and in Error for a failed one. Unknown
// tasks and invalid status values are reported, never silently dropped.
func (r *Registry) ApplyStatusUpdate(taskID string, status models.TaskStatus, detail string) error {
	if !status.Valid() {
		return fmt.Errorf("task %s: %w: %q", taskID, ErrInvalidStatus, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	task, exists := r.tasks[taskID]
	if !exists {
		return fmt.Errorf("status update for %s: %w", taskID, ErrUnknownTask)
	}

	task.SetStatus(status)
	switch status {
	case models.TaskStatusCompleted:
		if detail != "" {
			task.Result = detail
		}
	case models.TaskStatusFailed:
		if detail != "" {
			task.Error = detail
		}
	}
	return nil
}

// Get returns the task for an ID, or nil if not registered.
func (r *Registry) Get(taskID string) *models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks[taskID]
}

// StatusOf returns the current status for a task ID. The second return is
// false for unknown IDs.
func (r *Registry) StatusOf(taskID string) (models.TaskStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[taskID]
	if !exists {
		return "", false
	}
	return task.Status, true
}

// Mutate runs fn on the task under the registry lock and stamps UpdatedAt.
// Use it for field writes that are not status transitions; status changes
// go through ApplyStatusUpdate so they stay validated.
func (r *Registry) Mutate(taskID string, fn func(*models.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, exists := r.tasks[taskID]
	if !exists {
		return fmt.Errorf("mutate %s: %w", taskID, ErrUnknownTask)
	}
	fn(task)
	task.UpdatedAt = time.Now()
	return nil
}

// Snapshot returns a copy of the task taken under the registry lock, or nil
// for unknown IDs. The metadata map is copied; slices are shared and must
// be treated as read-only.
func (r *Registry) Snapshot(taskID string) *models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[taskID]
	if !exists {
		return nil
	}
	copied := *task
	if task.Metadata != nil {
		copied.Metadata = make(map[string]string, len(task.Metadata))
		for k, v := range task.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}

// All returns every registered task, sorted by ID.
func (r *Registry) All() []*models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered tasks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
