package orchestrator

import (
	"github.com/jairodriguez/autonomica/internal/capability"
	"github.com/jairodriguez/autonomica/internal/config"
	"github.com/jairodriguez/autonomica/internal/ledger"
	"github.com/jairodriguez/autonomica/internal/matcher"
	"github.com/jairodriguez/autonomica/internal/monitor"
	"github.com/jairodriguez/autonomica/internal/negotiation"
	"github.com/jairodriguez/autonomica/internal/state"
)

// RequiredConfig contains the minimal required configuration for an
// Orchestrator. Invoker executes tasks against the model provider; when nil,
// the deterministic simulator is used (the dry-run path).
type RequiredConfig struct {
	// Invoker executes tasks for assigned workers.
	Invoker capability.Invoker
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
// Collaborators left nil are built from config defaults during construction.
type orchestratorOptions struct {
	cfg          *config.Config
	ledger       *ledger.Ledger
	negotiations *negotiation.Manager
	monitor      *monitor.Registry
	registry     *WorkerRegistry
	matcher      *matcher.Matcher
	costs        *CostModel
	store        state.Store
	logger       *DebugLogger
	eventBuffer  int
}

// WithConfig sets the configuration the orchestrator builds defaults from.
func WithConfig(cfg *config.Config) Option {
	return func(o *orchestratorOptions) { o.cfg = cfg }
}

// WithLedger sets the resource ledger. The caller owns resource
// registration; the standard entries are not added.
func WithLedger(l *ledger.Ledger) Option {
	return func(o *orchestratorOptions) { o.ledger = l }
}

// WithNegotiationManager sets the negotiation manager.
func WithNegotiationManager(m *negotiation.Manager) Option {
	return func(o *orchestratorOptions) { o.negotiations = m }
}

// WithMonitor sets the task monitor.
func WithMonitor(m *monitor.Registry) Option {
	return func(o *orchestratorOptions) { o.monitor = m }
}

// WithWorkerRegistry sets the worker registry.
func WithWorkerRegistry(r *WorkerRegistry) Option {
	return func(o *orchestratorOptions) { o.registry = r }
}

// WithMatcher sets the worker matcher.
func WithMatcher(m *matcher.Matcher) Option {
	return func(o *orchestratorOptions) { o.matcher = m }
}

// WithCostModel sets the cost model.
func WithCostModel(c *CostModel) Option {
	return func(o *orchestratorOptions) { o.costs = c }
}

// WithStore sets the history store. A nil store disables persistence.
func WithStore(s state.Store) Option {
	return func(o *orchestratorOptions) { o.store = s }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *orchestratorOptions) { o.eventBuffer = n }
}
