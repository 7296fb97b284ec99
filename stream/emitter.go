package stream

import (
	"sync"
)

// Sink receives emitted events. The event name is the room id and payload
// is the pipeline output. Emit runs on the reading goroutine of the channel
// and should return quickly.
type Sink interface {
	Emit(event string, payload any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event string, payload any)

func (f SinkFunc) Emit(event string, payload any) { f(event, payload) }

// Handler is an event callback registered on an Emitter.
type Handler func(event string, payload any)

// AnyEvent subscribes a handler to every event.
const AnyEvent = "*"

type handlerEntry struct {
	id uint64
	fn Handler
}

// Emitter is the in-process Sink used when no external sink is configured.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]handlerEntry
}

// NewEmitter creates an emitter without handlers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]handlerEntry)}
}

// On registers fn for event and returns an id for Off.
func (e *Emitter) On(event string, fn Handler) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.handlers[event] = append(e.handlers[event], handlerEntry{id: e.nextID, fn: fn})
	return e.nextID
}

// Off removes the handler with id. It reports whether one was removed.
func (e *Emitter) Off(event string, id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.handlers[event]
	for i, entry := range entries {
		if entry.id == id {
			e.handlers[event] = append(entries[:i:i], entries[i+1:]...)
			if len(e.handlers[event]) == 0 {
				delete(e.handlers, event)
			}
			return true
		}
	}
	return false
}

// Emit calls the handlers of event, then the AnyEvent handlers, in
// registration order.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	specific := e.handlers[event]
	wildcard := e.handlers[AnyEvent]
	e.mu.RUnlock()

	for _, entry := range specific {
		entry.fn(event, payload)
	}
	if event == AnyEvent {
		return
	}
	for _, entry := range wildcard {
		entry.fn(event, payload)
	}
}
