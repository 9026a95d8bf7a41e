// Package negotiation resolves contention over shared resources. A Manager
// owns all in-flight disputes: it applies automatic resolution heuristics
// when a dispute opens, tracks per-dispute message history, force-resolves
// disputes that age out, and garbage-collects settled entries.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jairodriguez/autonomica/pkg/models"
	"github.com/jairodriguez/autonomica/pkg/protocol"
)

// ErrUnknownNegotiation indicates the negotiation ID is not registered.
var ErrUnknownNegotiation = errors.New("unknown negotiation")

// Default timing policy. All three are configurable per Manager.
const (
	DefaultResolveTimeout = 5 * time.Minute
	DefaultRetention      = time.Hour
	DefaultSweepInterval  = 30 * time.Second
)

// recentWindow is how many trailing messages are inspected for an
// acceptance when a new message arrives.
const recentWindow = 3

// Config holds the timing policy for a Manager.
type Config struct {
	// ResolveTimeout bounds how long a negotiation may stay open before it
	// is force-resolved in favor of the initiator.
	ResolveTimeout time.Duration
	// Retention is how long terminal negotiations are kept before removal.
	Retention time.Duration
	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = DefaultResolveTimeout
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
}

// KindFn resolves a resource ID to its kind. The orchestrator injects a
// ledger lookup; the manager falls back to ID inspection when the function
// is nil or reports an unknown resource.
type KindFn func(resourceID string) models.ResourceKind

// Metrics summarizes negotiation outcomes for observability.
type Metrics struct {
	// Total is the number of negotiations currently tracked.
	Total int `json:"total"`
	// Active is the number of open negotiations.
	Active int `json:"active"`
	// Resolved is the number that ended with a resolution.
	Resolved int `json:"resolved"`
	// Failed is the number that ended without one.
	Failed int `json:"failed"`
	// SuccessRate is the share of tracked negotiations that resolved.
	SuccessRate float64 `json:"success_rate"`
}

// Manager owns all in-flight negotiations. Construct one per orchestrator
// and inject it wherever disputes are raised; there is no shared global
// instance.
type Manager struct {
	mu           sync.RWMutex
	negotiations map[string]*models.NegotiationState
	config       Config
	kindOf       KindFn

	// onTerminal, when set, is invoked after a negotiation reaches a
	// terminal state. Called without the lock held.
	onTerminal func(*models.NegotiationState)
}

// NewManager creates a manager with the given timing policy and resource
// kind lookup. Zero config fields fall back to the defaults.
func NewManager(cfg Config, kindOf KindFn) *Manager {
	cfg.applyDefaults()
	return &Manager{
		negotiations: make(map[string]*models.NegotiationState),
		config:       cfg,
		kindOf:       kindOf,
	}
}

// SetOnTerminal registers a callback fired whenever a negotiation resolves
// or fails, including timeout defaults and administrative overrides.
func (m *Manager) SetOnTerminal(fn func(*models.NegotiationState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTerminal = fn
}

// Start opens a negotiation over the contested resource and immediately
// attempts automatic resolution. The returned state may already be
// resolved when one of the heuristics matched.
func (m *Manager) Start(resourceID, initiatorID string, involved []string) *models.NegotiationState {
	now := time.Now()
	state := &models.NegotiationState{
		ID:          uuid.New().String()[:8],
		ResourceID:  resourceID,
		InitiatorID: initiatorID,
		Parties:     mergeParties(initiatorID, involved),
		Status:      models.NegotiationOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.mu.Lock()
	m.negotiations[state.ID] = state
	terminal := m.autoResolveLocked(state)
	m.mu.Unlock()

	if terminal {
		m.notifyTerminal(state)
	}
	return state
}

// autoResolveLocked applies the ordered resolution heuristics; the first
// match wins. Returns true when the state went terminal.
func (m *Manager) autoResolveLocked(state *models.NegotiationState) bool {
	kind := m.kindForLocked(state.ResourceID)

	switch {
	case kind == models.ResourceWorker && len(state.Parties) <= 2:
		m.resolveLocked(state, fmt.Sprintf("time-sharing between %s", strings.Join(state.Parties, " and ")))
		return true
	case kind == models.ResourceTokenBudget:
		m.resolveLocked(state, fmt.Sprintf("priority allocation: %s first-come-first-served", state.InitiatorID))
		return true
	case kind == models.ResourceMemory || kind == models.ResourceComputational:
		m.resolveLocked(state, fmt.Sprintf("load balancing across %s", strings.Join(state.Parties, ", ")))
		return true
	default:
		return false
	}
}

// kindForLocked determines the resource kind, consulting the injected
// lookup first and falling back to inspecting the resource ID.
func (m *Manager) kindForLocked(resourceID string) models.ResourceKind {
	if m.kindOf != nil {
		if kind := m.kindOf(resourceID); kind.Valid() {
			return kind
		}
	}

	id := strings.ToLower(resourceID)
	switch {
	case strings.HasPrefix(id, "worker"):
		return models.ResourceWorker
	case strings.Contains(id, "token"):
		return models.ResourceTokenBudget
	case strings.Contains(id, "memory"):
		return models.ResourceMemory
	case strings.Contains(id, "compute"):
		return models.ResourceComputational
	default:
		return ""
	}
}

// AddMessage appends a message to the negotiation's history and checks the
// most recent messages for an acceptance. History may still be appended to
// a terminal negotiation, but its outcome never changes.
func (m *Manager) AddMessage(negotiationID string, msg protocol.Message) error {
	m.mu.Lock()

	state, ok := m.negotiations[negotiationID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("add message to %s: %w", negotiationID, ErrUnknownNegotiation)
	}

	state.History = append(state.History, msg)
	state.UpdatedAt = time.Now()

	terminal := false
	if state.Status == models.NegotiationOpen {
		start := len(state.History) - recentWindow
		if start < 0 {
			start = 0
		}
		for _, recent := range state.History[start:] {
			resp, isResponse := recent.Payload.(*protocol.NegotiationResponse)
			if isResponse && resp.Accepted {
				m.resolveLocked(state, fmt.Sprintf("accepted by %s", recent.Header.SenderID))
				terminal = true
				break
			}
		}
	}
	m.mu.Unlock()

	if terminal {
		m.notifyTerminal(state)
	}
	return nil
}

// Resolve transitions an open negotiation to resolved. Terminal states are
// untouched: resolve and fail are idempotent and never reversed.
func (m *Manager) Resolve(negotiationID, resolution string) error {
	m.mu.Lock()
	state, ok := m.negotiations[negotiationID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("resolve %s: %w", negotiationID, ErrUnknownNegotiation)
	}
	changed := state.Status == models.NegotiationOpen
	if changed {
		m.resolveLocked(state, resolution)
	}
	m.mu.Unlock()

	if changed {
		m.notifyTerminal(state)
	}
	return nil
}

// Fail transitions an open negotiation to failed with the given reason.
func (m *Manager) Fail(negotiationID, reason string) error {
	m.mu.Lock()
	state, ok := m.negotiations[negotiationID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("fail %s: %w", negotiationID, ErrUnknownNegotiation)
	}
	changed := state.Status == models.NegotiationOpen
	if changed {
		state.Status = models.NegotiationFailed
		state.FailureReason = reason
		state.UpdatedAt = time.Now()
	}
	m.mu.Unlock()

	if changed {
		m.notifyTerminal(state)
	}
	return nil
}

// resolveLocked marks the state resolved. Callers hold the lock and have
// already checked the state is open.
func (m *Manager) resolveLocked(state *models.NegotiationState, resolution string) {
	state.Status = models.NegotiationResolved
	state.Resolution = resolution
	state.UpdatedAt = time.Now()
}

// Get returns the negotiation for an ID, or nil if not tracked.
func (m *Manager) Get(negotiationID string) *models.NegotiationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.negotiations[negotiationID]
}

// GetActive returns open negotiations over the given resource, oldest
// first. An empty resource ID matches every open negotiation.
func (m *Manager) GetActive(resourceID string) []*models.NegotiationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*models.NegotiationState
	for _, state := range m.negotiations {
		if state.Status != models.NegotiationOpen {
			continue
		}
		if resourceID != "" && state.ResourceID != resourceID {
			continue
		}
		active = append(active, state)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	return active
}

// ForceResolveAll administratively resolves every open negotiation over
// the resource in favor of the given winner. Returns how many were closed.
func (m *Manager) ForceResolveAll(resourceID, winner string) int {
	m.mu.Lock()
	var closed []*models.NegotiationState
	for _, state := range m.negotiations {
		if state.Status == models.NegotiationOpen && state.ResourceID == resourceID {
			m.resolveLocked(state, fmt.Sprintf("administrative override in favor of %s", winner))
			closed = append(closed, state)
		}
	}
	m.mu.Unlock()

	for _, state := range closed {
		m.notifyTerminal(state)
	}
	return len(closed)
}

// Metrics returns counts and the success rate across tracked negotiations.
func (m *Manager) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := Metrics{Total: len(m.negotiations)}
	for _, state := range m.negotiations {
		switch state.Status {
		case models.NegotiationOpen:
			metrics.Active++
		case models.NegotiationResolved:
			metrics.Resolved++
		case models.NegotiationFailed:
			metrics.Failed++
		}
	}
	if metrics.Total > 0 {
		metrics.SuccessRate = float64(metrics.Resolved) / float64(metrics.Total)
	}
	return metrics
}

// Sweep force-resolves open negotiations older than the resolve timeout
// and deletes terminal ones past the retention window. Called periodically
// by Run; exported so callers can trigger it directly.
func (m *Manager) Sweep(now time.Time) {
	m.mu.Lock()
	var timedOut []*models.NegotiationState
	for id, state := range m.negotiations {
		switch {
		case state.Status == models.NegotiationOpen && now.Sub(state.CreatedAt) > m.config.ResolveTimeout:
			// A timeout default, not a negotiated agreement.
			m.resolveLocked(state, fmt.Sprintf("timeout default: priority to initiator %s", state.InitiatorID))
			log.Printf("[negotiation] warning: negotiation %s over %s timed out after %s, defaulting to initiator %s",
				state.ID, state.ResourceID, m.config.ResolveTimeout, state.InitiatorID)
			timedOut = append(timedOut, state)
		case state.Status.Terminal() && now.Sub(state.UpdatedAt) > m.config.Retention:
			delete(m.negotiations, id)
		}
	}
	m.mu.Unlock()

	for _, state := range timedOut {
		m.notifyTerminal(state)
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

func (m *Manager) notifyTerminal(state *models.NegotiationState) {
	m.mu.RLock()
	fn := m.onTerminal
	m.mu.RUnlock()
	if fn != nil {
		fn(state)
	}
}

// mergeParties returns the involved workers with the initiator included,
// duplicates removed, original order preserved.
func mergeParties(initiatorID string, involved []string) []string {
	seen := map[string]bool{initiatorID: true}
	parties := []string{initiatorID}
	for _, id := range involved {
		if !seen[id] {
			seen[id] = true
			parties = append(parties, id)
		}
	}
	return parties
}
