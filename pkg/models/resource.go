package models

// ResourceKind classifies a shared capacity pool.
type ResourceKind string

const (
	// ResourceWorker is a per-worker slot pool.
	ResourceWorker ResourceKind = "worker"
	// ResourceComputational is a shared compute pool.
	ResourceComputational ResourceKind = "computational"
	// ResourceMemory is a shared memory pool.
	ResourceMemory ResourceKind = "memory"
	// ResourceTokenBudget is the shared language-model token budget.
	ResourceTokenBudget ResourceKind = "token_budget"
	// ResourceExternalAPI is a rate-limited external API pool.
	ResourceExternalAPI ResourceKind = "external_api"
)

// Valid returns true if the kind is a known value.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceWorker, ResourceComputational, ResourceMemory,
		ResourceTokenBudget, ResourceExternalAPI:
		return true
	default:
		return false
	}
}

// ResourceEntry is one row of the resource ledger: a named capacity pool
// and its outstanding reservations. Allocated never exceeds Capacity and
// always equals the sum of ReservedBy.
type ResourceEntry struct {
	// ID is the unique identifier for this resource.
	ID string `json:"id"`
	// Kind classifies the resource pool.
	Kind ResourceKind `json:"kind"`
	// Capacity is the total amount available.
	Capacity float64 `json:"capacity"`
	// Allocated is the amount currently reserved.
	Allocated float64 `json:"allocated"`
	// ReservedBy maps reserving task ID to its outstanding amount.
	ReservedBy map[string]float64 `json:"reserved_by,omitempty"`
	// Metadata carries free-form key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Utilization returns Allocated/Capacity, or 0 for zero capacity.
func (r *ResourceEntry) Utilization() float64 {
	if r.Capacity <= 0 {
		return 0
	}
	return r.Allocated / r.Capacity
}
