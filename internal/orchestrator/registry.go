package orchestrator

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// WorkerRegistry tracks the workers available for task assignment.
// It is the single place worker status and workload are mutated.
type WorkerRegistry struct {
	mu      sync.RWMutex
	workers map[string]*models.Worker
}

// NewWorkerRegistry creates an empty worker registry.
func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{workers: make(map[string]*models.Worker)}
}

// Register adds a worker. A duplicate ID returns ErrDuplicateWorker.
func (r *WorkerRegistry) Register(w *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[w.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWorker, w.ID)
	}
	if !w.Status.Valid() {
		w.Status = models.WorkerStatusIdle
	}
	r.workers[w.ID] = w
	return nil
}

// Deregister removes a worker. Unknown IDs return ErrUnknownWorker.
func (r *WorkerRegistry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.workers[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, id)
	}
	if w.Status == models.WorkerStatusBusy {
		log.Printf("[orchestrator] warning: deregistering busy worker %s", id)
	}
	delete(r.workers, id)
	return nil
}

// Get returns the worker for an ID, or nil if not registered.
func (r *WorkerRegistry) Get(id string) *models.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workers[id]
}

// List returns every registered worker, sorted by ID.
func (r *WorkerRegistry) List() []*models.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateStatus sets a worker's availability.
func (r *WorkerRegistry) UpdateStatus(id string, status models.WorkerStatus) error {
	if !status.Valid() {
		return fmt.Errorf("worker %s: invalid status %q", id, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.workers[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, id)
	}
	w.Status = status
	return nil
}

// SetBusy marks a worker busy and counts the assignment in its workload.
func (r *WorkerRegistry) SetBusy(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.workers[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, id)
	}
	w.Status = models.WorkerStatusBusy
	w.Workload++
	return nil
}

// SetIdle releases one assignment from a worker. The worker goes idle when
// its workload reaches zero; offline workers stay offline.
func (r *WorkerRegistry) SetIdle(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.workers[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, id)
	}
	if w.Workload > 0 {
		w.Workload--
	}
	if w.Workload == 0 && w.Status == models.WorkerStatusBusy {
		w.Status = models.WorkerStatusIdle
	}
	return nil
}

// Count returns the number of registered workers.
func (r *WorkerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// ApplyFile reconciles the registry against a freshly loaded worker file.
// New workers are added, known workers have their declared fields updated in
// place (live status and workload are preserved), and workers absent from
// the file are removed. Returns the number of added, updated, and removed
// workers.
func (r *WorkerRegistry) ApplyFile(workers []*models.Worker) (added, updated, removed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(workers))
	for _, incoming := range workers {
		seen[incoming.ID] = true

		existing, ok := r.workers[incoming.ID]
		if !ok {
			if !incoming.Status.Valid() {
				incoming.Status = models.WorkerStatusIdle
			}
			r.workers[incoming.ID] = incoming
			added++
			continue
		}

		existing.Name = incoming.Name
		existing.Role = incoming.Role
		existing.Description = incoming.Description
		existing.Tools = incoming.Tools
		existing.Model = incoming.Model
		updated++
	}

	for id, w := range r.workers {
		if seen[id] {
			continue
		}
		if w.Status == models.WorkerStatusBusy {
			log.Printf("[orchestrator] warning: worker %s removed from file while busy", id)
		}
		delete(r.workers, id)
		removed++
	}
	return added, updated, removed
}
