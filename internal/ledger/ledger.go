// Package ledger tracks named capacity pools and their reservations. It is
// the single source of truth for shared capacity: all reserve and release
// calls go through it, and no other component mutates allocation state.
package ledger

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// ErrResourceExhausted indicates a reservation could not be satisfied.
// The caller should defer the task rather than treat this as fatal.
var ErrResourceExhausted = errors.New("resource exhausted")

// ErrUnknownResource indicates the resource ID is not registered.
var ErrUnknownResource = errors.New("unknown resource")

// Ledger holds capacity entries keyed by resource ID. Reserve and release
// are atomic relative to each other for the same resource: capacity can
// never go negative or over-subscribed.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*models.ResourceEntry
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*models.ResourceEntry)}
}

// Register adds a resource entry to the ledger. An existing entry with the
// same ID is replaced.
func (l *Ledger) Register(entry *models.ResourceEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ReservedBy == nil {
		entry.ReservedBy = make(map[string]float64)
	}
	l.entries[entry.ID] = entry
}

// Remove deletes a resource entry from the ledger.
func (l *Ledger) Remove(resourceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, resourceID)
}

// Reserve attempts to allocate amount on the resource for the given task.
// It succeeds only if allocated+amount stays within capacity; on failure
// the entry is left untouched and the caller must handle the shortfall.
func (l *Ledger) Reserve(resourceID string, amount float64, taskID string) error {
	if amount < 0 {
		return fmt.Errorf("reserve %s for task %s: negative amount %.2f", resourceID, taskID, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[resourceID]
	if !ok {
		return fmt.Errorf("reserve %s: %w", resourceID, ErrUnknownResource)
	}
	if entry.Allocated+amount > entry.Capacity {
		return fmt.Errorf("reserve %.2f of %s (%.2f/%.2f allocated): %w",
			amount, resourceID, entry.Allocated, entry.Capacity, ErrResourceExhausted)
	}

	entry.Allocated += amount
	entry.ReservedBy[taskID] += amount
	return nil
}

// Release returns amount of the resource held by the given task. The
// release is clamped to the task's outstanding reservation, so allocation
// never goes negative even when actual usage differs from the estimate.
func (l *Ledger) Release(resourceID string, amount float64, taskID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[resourceID]
	if !ok {
		log.Printf("[ledger] warning: release on unknown resource %s (task %s)", resourceID, taskID)
		return
	}

	outstanding, held := entry.ReservedBy[taskID]
	if !held {
		log.Printf("[ledger] warning: release on %s by task %s with no reservation", resourceID, taskID)
		return
	}

	if amount < 0 {
		amount = 0
	}
	if amount > outstanding {
		amount = outstanding
	}

	entry.Allocated -= amount
	if entry.Allocated < 0 {
		entry.Allocated = 0
	}
	remaining := outstanding - amount
	if remaining <= 0 {
		delete(entry.ReservedBy, taskID)
	} else {
		entry.ReservedBy[taskID] = remaining
	}
}

// ReleaseAll returns every outstanding reservation held by the task across
// all resources. The returned map lists resource ID to the amount released,
// used by cancellation and failure cleanup.
func (l *Ledger) ReleaseAll(taskID string) map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	released := make(map[string]float64)
	for id, entry := range l.entries {
		outstanding, held := entry.ReservedBy[taskID]
		if !held {
			continue
		}
		entry.Allocated -= outstanding
		if entry.Allocated < 0 {
			entry.Allocated = 0
		}
		delete(entry.ReservedBy, taskID)
		released[id] = outstanding
	}
	return released
}

// Utilization returns allocated/capacity for the resource, or 0 if the
// resource is unknown.
func (l *Ledger) Utilization(resourceID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[resourceID]
	if !ok {
		return 0
	}
	return entry.Utilization()
}

// Holders returns the sorted task IDs with outstanding reservations on the
// resource.
func (l *Ledger) Holders(resourceID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[resourceID]
	if !ok {
		return nil
	}
	holders := make([]string, 0, len(entry.ReservedBy))
	for taskID := range entry.ReservedBy {
		holders = append(holders, taskID)
	}
	sort.Strings(holders)
	return holders
}

// Kind returns the resource kind, or empty string if unknown.
func (l *Ledger) Kind(resourceID string) models.ResourceKind {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.entries[resourceID]; ok {
		return entry.Kind
	}
	return ""
}

// Get returns a snapshot copy of the entry, and whether it exists.
func (l *Ledger) Get(resourceID string) (models.ResourceEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[resourceID]
	if !ok {
		return models.ResourceEntry{}, false
	}
	return copyEntry(entry), true
}

// Snapshot returns copies of all entries, sorted by ID.
func (l *Ledger) Snapshot() []models.ResourceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ResourceEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, copyEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyEntry(entry *models.ResourceEntry) models.ResourceEntry {
	snap := *entry
	snap.ReservedBy = make(map[string]float64, len(entry.ReservedBy))
	for k, v := range entry.ReservedBy {
		snap.ReservedBy[k] = v
	}
	return snap
}
