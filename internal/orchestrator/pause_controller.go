package orchestrator

import (
	"context"
	"log"
	"sync"
)

// PauseController gates task dispatch. While paused, scheduling passes
// block before starting new tasks; work already in flight runs to
// completion. Stop permanently releases every waiter.
type PauseController struct {
	// paused suspends dispatch when true.
	paused bool
	// stopped permanently releases waiters when true.
	stopped bool
	// mu protects both flags.
	mu sync.RWMutex
	// cond signals waiters on resume or stop.
	cond *sync.Cond
}

// NewPauseController creates a controller in the running state.
func NewPauseController() *PauseController {
	p := &PauseController{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Pause suspends dispatch. Idempotent.
func (p *PauseController) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		log.Printf("[orchestrator] paused, no new tasks will start")
	}
}

// Resume reverses Pause and wakes blocked scheduling passes.
func (p *PauseController) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		log.Printf("[orchestrator] resumed, task dispatch enabled")
		p.cond.Broadcast()
	}
}

// Stop releases all waiters for good. Blocked WaitIfPaused calls return
// ErrOrchestratorStopped.
func (p *PauseController) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		p.cond.Broadcast()
	}
}

// IsPaused reports whether dispatch is suspended.
func (p *PauseController) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// IsStopped reports whether the controller has been stopped.
func (p *PauseController) IsStopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// WaitIfPaused blocks while the controller is paused. It returns nil once
// dispatch may proceed, the context error on cancellation, and
// ErrOrchestratorStopped after Stop.
func (p *PauseController) WaitIfPaused(ctx context.Context) error {
	p.mu.Lock()
	if p.paused && !p.stopped {
		// One watcher goroutine per blocked waiter; it broadcasts when the
		// context ends so the cond wait can observe it.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.cond.Broadcast()
				p.mu.Unlock()
			case <-done:
			}
		}()

		for p.paused && !p.stopped {
			p.cond.Wait()
			if ctx.Err() != nil {
				close(done)
				p.mu.Unlock()
				return ctx.Err()
			}
		}
		close(done)
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrOrchestratorStopped
	}
	p.mu.Unlock()
	return nil
}
