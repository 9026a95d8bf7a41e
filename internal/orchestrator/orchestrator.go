package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jairodriguez/autonomica/internal/capability"
	"github.com/jairodriguez/autonomica/internal/config"
	"github.com/jairodriguez/autonomica/internal/ledger"
	"github.com/jairodriguez/autonomica/internal/matcher"
	"github.com/jairodriguez/autonomica/internal/monitor"
	"github.com/jairodriguez/autonomica/internal/negotiation"
	"github.com/jairodriguez/autonomica/internal/state"
	"github.com/jairodriguez/autonomica/pkg/models"
)

// Standard ledger entries registered from config at construction.
const (
	// ResourceWorkerSlots is the shared pool of concurrent task slots.
	ResourceWorkerSlots = "worker-slots"
	// ResourceTokenBudget is the shared token budget for the run.
	ResourceTokenBudget = "token-budget"
	// ResourceMemoryPool is the shared memory pool in megabytes.
	ResourceMemoryPool = "memory-pool"
)

const (
	defaultMaxParallel  = 4
	defaultTaskTimeout  = 5 * time.Minute
	defaultTickInterval = 2 * time.Second
	defaultEventBuffer  = 100
)

// Orchestrator drives workflows: it validates dependency graphs, assigns
// workers, accounts for resources, and reports progress over events.
type Orchestrator struct {
	cfg          *config.Config
	invoker      capability.Invoker
	ledger       *ledger.Ledger
	negotiations *negotiation.Manager
	monitor      *monitor.Registry
	registry     *WorkerRegistry
	matcher      *matcher.Matcher
	costs        *CostModel
	store        state.Store
	logger       *DebugLogger
	emitter      *EventEmitter
	pause        *PauseController
	defaultModel string

	// mu protects the workflow maps and the mutable workflow fields.
	mu sync.RWMutex
	// workflows maps workflow ID to its execution record.
	workflows map[string]*models.WorkflowExecution
	// graphs maps workflow ID to its dependency graph.
	graphs map[string]*graphHandle
	// taskIndex maps task ID to its owning workflow ID.
	taskIndex map[string]string
	// executing tracks workflow IDs currently driven by a goroutine.
	executing map[string]bool
	// cancels maps task ID to the CancelFunc of its in-flight invocation.
	cancels map[string]context.CancelFunc
	// conflicts tracks task/resource pairs that already opened a negotiation.
	conflicts map[string]bool
	// warned tracks resources past the utilization warning threshold so the
	// warning fires once per crossing.
	warned map[string]bool
	// stopped indicates whether Stop has been called.
	stopped bool

	// stopCh signals the run loop to exit.
	stopCh chan struct{}
	// wg tracks workflow goroutines.
	wg sync.WaitGroup
}

// New creates an Orchestrator. Collaborators not injected via options are
// built from the configuration: a ledger seeded with the standard resource
// entries, a negotiation manager keyed to the ledger's resource kinds, a
// task monitor, a worker registry, and the default matcher and cost tables.
func New(req RequiredConfig, opts ...Option) *Orchestrator {
	options := &orchestratorOptions{eventBuffer: defaultEventBuffer}
	for _, opt := range opts {
		opt(options)
	}

	cfg := options.cfg
	if cfg == nil {
		cfg = config.Default()
	}

	invoker := req.Invoker
	if invoker == nil {
		invoker = capability.NewSimulator()
	}

	led := options.ledger
	if led == nil {
		led = ledger.New()
		led.Register(&models.ResourceEntry{
			ID:       ResourceWorkerSlots,
			Kind:     models.ResourceWorker,
			Capacity: float64(cfg.Resources.WorkerSlots),
		})
		led.Register(&models.ResourceEntry{
			ID:       ResourceTokenBudget,
			Kind:     models.ResourceTokenBudget,
			Capacity: float64(cfg.Resources.TokenBudget),
		})
		led.Register(&models.ResourceEntry{
			ID:       ResourceMemoryPool,
			Kind:     models.ResourceMemory,
			Capacity: cfg.Resources.MemoryMB,
		})
	}

	negotiations := options.negotiations
	if negotiations == nil {
		negotiations = negotiation.NewManager(negotiation.Config{
			ResolveTimeout: cfg.Negotiation.ResolveTimeout,
			Retention:      cfg.Negotiation.Retention,
			SweepInterval:  cfg.Negotiation.SweepInterval,
		}, led.Kind)
	}

	mon := options.monitor
	if mon == nil {
		mon = monitor.New()
	}

	registry := options.registry
	if registry == nil {
		registry = NewWorkerRegistry()
	}

	match := options.matcher
	if match == nil {
		match = matcher.New(matcher.DefaultTierTable())
	}

	costs := options.costs
	if costs == nil {
		costs = NewCostModel(DefaultModelPricing(), defaultUtilizationRate)
	}

	logger := options.logger
	if logger == nil {
		logger = NopLogger()
	}
	setPackageLogger(logger)

	o := &Orchestrator{
		cfg:          cfg,
		invoker:      invoker,
		ledger:       led,
		negotiations: negotiations,
		monitor:      mon,
		registry:     registry,
		matcher:      match,
		costs:        costs,
		store:        options.store,
		logger:       logger,
		emitter:      NewEventEmitter(options.eventBuffer),
		pause:        NewPauseController(),
		defaultModel: cfg.Provider.Model,
		workflows:    make(map[string]*models.WorkflowExecution),
		graphs:       make(map[string]*graphHandle),
		taskIndex:    make(map[string]string),
		executing:    make(map[string]bool),
		cancels:      make(map[string]context.CancelFunc),
		conflicts:    make(map[string]bool),
		warned:       make(map[string]bool),
		stopCh:       make(chan struct{}),
	}

	negotiations.SetOnTerminal(o.onNegotiationTerminal)
	return o
}

// Run drives the orchestration loop until the context is cancelled or Stop
// is called. Every tick it starts pending workflows, checks resource
// utilization against the warning threshold, and prunes terminal workflows
// past the retention window. The negotiation sweep runs alongside.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return ErrOrchestratorStopped
	}
	o.mu.Unlock()

	negCtx, negCancel := context.WithCancel(ctx)
	defer negCancel()
	go o.negotiations.Run(negCtx)

	interval := o.cfg.Orchestrator.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.logger.Log("[orchestrator] run loop started, tick every %s", interval)

	for {
		select {
		case <-ctx.Done():
			o.wg.Wait()
			return ctx.Err()
		case <-o.stopCh:
			o.wg.Wait()
			return nil
		case <-ticker.C:
			o.tick(ctx)
		}
	}
}

// tick is one pass of the orchestration loop.
func (o *Orchestrator) tick(ctx context.Context) {
	o.startPendingWorkflows(ctx)
	o.checkUtilization()
	o.pruneWorkflows(time.Now())
}

// startPendingWorkflows launches one goroutine per pending workflow.
func (o *Orchestrator) startPendingWorkflows(ctx context.Context) {
	o.mu.Lock()
	var toStart []string
	for id, wf := range o.workflows {
		if wf.Status == models.WorkflowStatusPending && !o.executing[id] {
			o.executing[id] = true
			toStart = append(toStart, id)
		}
	}
	o.mu.Unlock()

	sort.Strings(toStart)
	for _, id := range toStart {
		o.wg.Add(1)
		go func(workflowID string) {
			defer o.wg.Done()
			defer func() {
				o.mu.Lock()
				delete(o.executing, workflowID)
				o.mu.Unlock()
			}()
			if err := o.executeWorkflow(ctx, workflowID); err != nil {
				log.Printf("[orchestrator] workflow %s: %v", workflowID, err)
			}
		}(id)
	}
}

// checkUtilization warns once per crossing when a resource passes the
// configured utilization threshold.
func (o *Orchestrator) checkUtilization() {
	threshold := o.cfg.Orchestrator.UtilizationWarning
	if threshold <= 0 {
		return
	}

	for _, entry := range o.ledger.Snapshot() {
		util := entry.Utilization()

		o.mu.Lock()
		warned := o.warned[entry.ID]
		if util >= threshold && !warned {
			o.warned[entry.ID] = true
			o.mu.Unlock()
			log.Printf("[orchestrator] warning: resource %s at %.0f%% utilization", entry.ID, util*100)
			o.emit(Event{
				Type:      EventBudgetWarning,
				Message:   fmt.Sprintf("resource %s at %.0f%% utilization", entry.ID, util*100),
				Timestamp: time.Now(),
			})
			continue
		}
		if util < threshold && warned {
			delete(o.warned, entry.ID)
		}
		o.mu.Unlock()
	}
}

// pruneWorkflows drops terminal workflows and their tasks once they age out
// of the retention window. History in the store is unaffected.
func (o *Orchestrator) pruneWorkflows(now time.Time) {
	retention := o.cfg.Orchestrator.WorkflowRetention
	if retention <= 0 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for id, wf := range o.workflows {
		if !wf.Status.Terminal() || wf.CompletedAt == nil {
			continue
		}
		if now.Sub(*wf.CompletedAt) < retention {
			continue
		}
		for _, taskID := range wf.TaskIDs {
			delete(o.taskIndex, taskID)
			delete(o.cancels, taskID)
		}
		delete(o.workflows, id)
		delete(o.graphs, id)
		debugLog("[orchestrator] pruned workflow %s after retention", id)
	}
}

// ExecuteWorkflow drives a single workflow to a terminal state. This is the
// path the CLI run command uses; the background loop uses the same driver.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, workflowID string) error {
	o.mu.Lock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, workflowID)
	}
	if wf.Status.Terminal() {
		o.mu.Unlock()
		return ErrAlreadyTerminal
	}
	if o.executing[workflowID] {
		o.mu.Unlock()
		return fmt.Errorf("workflow %s is already executing", workflowID)
	}
	o.executing[workflowID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.executing, workflowID)
		o.mu.Unlock()
	}()

	return o.executeWorkflow(ctx, workflowID)
}

// executeWorkflow runs one workflow start to finish: pick the effective
// mode, drive the scheduling passes, then settle the final status.
func (o *Orchestrator) executeWorkflow(ctx context.Context, workflowID string) error {
	o.mu.Lock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, workflowID)
	}
	if wf.Status != models.WorkflowStatusPending {
		o.mu.Unlock()
		return nil
	}
	now := time.Now()
	wf.Status = models.WorkflowStatusInProgress
	wf.StartedAt = &now
	handle := o.graphs[workflowID]
	o.mu.Unlock()

	o.persistWorkflow(wf)
	o.emit(Event{
		Type:       EventWorkflowStarted,
		WorkflowID: wf.ID,
		Message:    fmt.Sprintf("workflow %s started", wf.Name),
		Timestamp:  time.Now(),
	})

	mode := o.effectiveMode(wf, handle)
	if mode != wf.Mode {
		o.logger.Log("[orchestrator] workflow %s: adaptive chose %s", wf.ID, mode)
	}

	var runErr error
	switch mode {
	case models.ModeParallel:
		runErr = o.runParallel(ctx, wf, handle)
	default:
		runErr = o.runSequential(ctx, wf, handle)
	}

	return o.finalizeWorkflow(wf, handle, runErr)
}

// effectiveMode resolves adaptive mode to sequential or parallel: parallel
// when the non-offline worker count is at least worker_ratio of the task
// count and more than min_independent-1 tasks start without dependencies.
func (o *Orchestrator) effectiveMode(wf *models.WorkflowExecution, handle *graphHandle) models.ExecutionMode {
	if wf.Mode != models.ModeAdaptive {
		return wf.Mode
	}

	ratio := o.cfg.Orchestrator.Adaptive.WorkerRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	minIndependent := o.cfg.Orchestrator.Adaptive.MinIndependent
	if minIndependent <= 0 {
		minIndependent = 2
	}

	available := 0
	for _, w := range o.registry.List() {
		if w.Status != models.WorkerStatusOffline {
			available++
		}
	}

	independent := 0
	for _, task := range handle.tasks {
		if len(task.Dependencies) == 0 {
			independent++
		}
	}

	taskCount := len(handle.tasks)
	if taskCount > 0 && float64(available) >= ratio*float64(taskCount) && independent >= minIndependent {
		return models.ModeParallel
	}
	return models.ModeSequential
}

// finalizeWorkflow settles the terminal status after the mode driver
// returns. A cancelled workflow keeps its status. Any permanently failed
// task fails the workflow; unschedulable pending tasks fail it too, so a
// run always terminates with an honest status.
func (o *Orchestrator) finalizeWorkflow(wf *models.WorkflowExecution, handle *graphHandle, runErr error) error {
	o.mu.Lock()
	if wf.Status == models.WorkflowStatusCancelled {
		o.mu.Unlock()
		return nil
	}

	var completed, failed, pending int
	for _, task := range handle.tasks {
		status, _ := o.monitor.StatusOf(task.ID)
		switch status {
		case models.TaskStatusCompleted:
			completed++
		case models.TaskStatusFailed:
			failed++
		case models.TaskStatusCancelled:
		default:
			pending++
		}
	}
	total := len(handle.tasks)

	now := time.Now()
	var err error
	switch {
	case failed > 0:
		wf.Status = models.WorkflowStatusFailed
		err = fmt.Errorf("%w: %d of %d tasks failed", ErrWorkflowFailed, failed, total)
	case pending > 0:
		wf.Status = models.WorkflowStatusFailed
		err = fmt.Errorf("%w: %d of %d tasks could not be scheduled", ErrWorkflowFailed, pending, total)
	default:
		wf.Status = models.WorkflowStatusCompleted
	}
	if runErr != nil && err == nil {
		wf.Status = models.WorkflowStatusFailed
		err = fmt.Errorf("%w: %v", ErrWorkflowFailed, runErr)
	}
	wf.CompletedAt = &now
	totalCost := wf.TotalCost
	status := wf.Status
	o.mu.Unlock()

	o.persistWorkflow(wf)

	eventType := EventWorkflowCompleted
	message := fmt.Sprintf("workflow %s completed: %d/%d tasks", wf.Name, completed, total)
	if status == models.WorkflowStatusFailed {
		eventType = EventWorkflowFailed
		message = fmt.Sprintf("workflow %s failed: %d completed, %d failed, %d unscheduled", wf.Name, completed, failed, pending)
	}
	o.emit(Event{
		Type:       eventType,
		WorkflowID: wf.ID,
		Message:    message,
		Error:      err,
		Cost:       totalCost,
		Timestamp:  time.Now(),
	})
	return err
}

// Stop halts the run loop, waits for workflow goroutines, and closes the
// event channel. The orchestrator accepts no work afterwards.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.stopped = true
	o.mu.Unlock()

	o.pause.Stop()
	close(o.stopCh)
	o.wg.Wait()
	o.emitter.Close()
	o.logger.Log("[orchestrator] stopped")
	return nil
}

// Pause suspends dispatching. In-flight tasks run to completion; no new
// tasks start until Resume.
func (o *Orchestrator) Pause() {
	o.pause.Pause()
}

// Resume reverses Pause.
func (o *Orchestrator) Resume() {
	o.pause.Resume()
}

// IsPaused returns whether dispatching is suspended.
func (o *Orchestrator) IsPaused() bool {
	return o.pause.IsPaused()
}

// Events returns the channel subscribers consume progress from.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// DroppedEventCount returns the number of events dropped on a full channel.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.emitter.DroppedCount()
}

// Ledger returns the resource ledger.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// Negotiations returns the negotiation manager.
func (o *Orchestrator) Negotiations() *negotiation.Manager {
	return o.negotiations
}

// Monitor returns the task monitor.
func (o *Orchestrator) Monitor() *monitor.Registry {
	return o.monitor
}

// Workers returns the worker registry.
func (o *Orchestrator) Workers() *WorkerRegistry {
	return o.registry
}

// RegisterWorker adds a worker to the registry and announces it.
func (o *Orchestrator) RegisterWorker(w *models.Worker) error {
	if err := o.registry.Register(w); err != nil {
		return err
	}
	o.emit(Event{
		Type:      EventWorkerRegistered,
		WorkerID:  w.ID,
		Message:   fmt.Sprintf("worker %s (%s) registered", w.Name, w.Role),
		Timestamp: time.Now(),
	})
	return nil
}

// DeregisterWorker removes a worker from the registry and announces it.
func (o *Orchestrator) DeregisterWorker(id string) error {
	if err := o.registry.Deregister(id); err != nil {
		return err
	}
	o.emit(Event{
		Type:      EventWorkerDeregistered,
		WorkerID:  id,
		Message:   fmt.Sprintf("worker %s deregistered", id),
		Timestamp: time.Now(),
	})
	return nil
}

// ApplyWorkerFile reconciles the registry against a reloaded worker file.
// Wired to the config watcher for live reload.
func (o *Orchestrator) ApplyWorkerFile(workers []*models.Worker) {
	added, updated, removed := o.registry.ApplyFile(workers)
	if added+updated+removed > 0 {
		log.Printf("[orchestrator] worker file reload: %d added, %d updated, %d removed", added, updated, removed)
	}
}

// workflowCancelled reports whether the workflow has been cancelled.
func (o *Orchestrator) workflowCancelled(workflowID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	wf, ok := o.workflows[workflowID]
	return ok && wf.Status == models.WorkflowStatusCancelled
}

// onNegotiationTerminal persists and announces a settled negotiation.
func (o *Orchestrator) onNegotiationTerminal(st *models.NegotiationState) {
	o.persistNegotiation(st)

	message := st.Resolution
	if st.Status == models.NegotiationFailed {
		message = st.FailureReason
	}
	o.emit(Event{
		Type:          EventNegotiationResolved,
		NegotiationID: st.ID,
		Message:       message,
		Timestamp:     time.Now(),
	})
}

// emit sends an event without blocking the scheduler.
func (o *Orchestrator) emit(event Event) {
	o.emitter.Emit(event)
}

// persistWorkflow writes a workflow snapshot to the history store, if any.
func (o *Orchestrator) persistWorkflow(wf *models.WorkflowExecution) {
	if o.store == nil {
		return
	}
	o.mu.RLock()
	snapshot := *wf
	o.mu.RUnlock()
	if err := o.store.UpdateWorkflow(&snapshot); err != nil {
		log.Printf("[orchestrator] warning: persist workflow %s: %v", wf.ID, err)
	}
}

// persistTask writes a task snapshot to the history store, if any.
func (o *Orchestrator) persistTask(task *models.Task) {
	if o.store == nil {
		return
	}
	snapshot := o.monitor.Snapshot(task.ID)
	if snapshot == nil {
		snapshot = task
	}
	if err := o.store.UpdateTask(snapshot); err != nil {
		log.Printf("[orchestrator] warning: persist task %s: %v", task.ID, err)
	}
}

// persistNegotiation records a negotiation outcome in the history store.
func (o *Orchestrator) persistNegotiation(st *models.NegotiationState) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordNegotiation(st); err != nil {
		log.Printf("[orchestrator] warning: persist negotiation %s: %v", st.ID, err)
	}
}
