package mocks

import (
	"context"
	"sync"
)

type RecordedEvent struct {
	Name    string
	Payload any
}

// EventRecorder captures events passed to events.SetCustomEmitter.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func (r *EventRecorder) Emit(_ context.Context, name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Name: name, Payload: payload})
}

// Named returns the payloads of every event called name, in emission order.
func (r *EventRecorder) Named(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
