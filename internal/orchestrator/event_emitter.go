package orchestrator

import (
	"log"
	"sync/atomic"
	"time"
)

// emitGrace is how long Emit waits on a full channel before dropping.
const emitGrace = 100 * time.Millisecond

// EventEmitter fans events out to a single subscriber channel. Emission
// never blocks the run loop for more than emitGrace; a slow or absent
// subscriber costs dropped events, not stalled scheduling.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an emitter with the given channel buffer.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit delivers an event to the subscriber. A full buffer gets one grace
// interval to drain; after that the event is dropped and counted.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(emitGrace):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // warn on the 1st, 11th, 21st... drop
			log.Printf("[orchestrator] warning: event buffer full, dropped %s (total dropped %d)", event.Type, count)
		}
	}
}

// DroppedCount reports how many events have been dropped so far.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the subscriber channel. It is closed by Close.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the subscriber channel. No Emit may follow.
func (e *EventEmitter) Close() {
	close(e.events)
}
