package orchestrator

import (
	"testing"
	"time"
)

func TestEventEmitterDeliversBuffered(t *testing.T) {
	e := NewEventEmitter(4)

	e.Emit(Event{Type: EventTaskStarted, TaskID: "t1"})
	e.Emit(Event{Type: EventTaskCompleted, TaskID: "t1"})
	e.Close()

	var got []Event
	for ev := range e.Events() {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].Type != EventTaskStarted || got[1].Type != EventTaskCompleted {
		t.Errorf("event order = [%s %s]", got[0].Type, got[1].Type)
	}
	if e.DroppedCount() != 0 {
		t.Errorf("DroppedCount = %d, want 0", e.DroppedCount())
	}
}

func TestEventEmitterDropsWhenFull(t *testing.T) {
	e := NewEventEmitter(1)

	e.Emit(Event{Type: EventTaskStarted})
	// Nobody reads: the second emit waits out the grace window, then drops.
	start := time.Now()
	e.Emit(Event{Type: EventTaskCompleted})
	if elapsed := time.Since(start); elapsed < emitGrace {
		t.Errorf("second emit returned after %s, want at least the %s grace", elapsed, emitGrace)
	}

	if e.DroppedCount() != 1 {
		t.Errorf("DroppedCount = %d, want 1", e.DroppedCount())
	}
}

func TestEventEmitterGraceDelivery(t *testing.T) {
	e := NewEventEmitter(1)
	e.Emit(Event{Type: EventTaskStarted})

	// A reader that drains during the grace window saves the event.
	go func() {
		time.Sleep(10 * time.Millisecond)
		<-e.Events()
	}()

	e.Emit(Event{Type: EventTaskCompleted})
	if e.DroppedCount() != 0 {
		t.Errorf("DroppedCount = %d, want 0 when reader drains in time", e.DroppedCount())
	}
}
