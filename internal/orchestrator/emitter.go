package orchestrator

import (
	"sync/atomic"
)

// EventEmitter fans engine lifecycle events out to subscribers over a
// buffered channel. Emission never blocks the dispatch cycle: when the
// buffer is full the event is dropped and counted.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel, dropping it if the buffer is full.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
	default:
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // log every 10th drop to avoid spam
			debugLog("[emitter] event channel full, dropped event (total dropped: %d): type=%s task=%s", count, event.Type, event.TaskID)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only event stream for subscribers.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the event channel. Call only once the engine has stopped.
func (e *EventEmitter) Close() {
	close(e.events)
}
