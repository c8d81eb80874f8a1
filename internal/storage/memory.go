package storage

import (
	"context"
	"sync"
)

// MemoryHub is shared in-process storage. Each Backend taken from the hub acts
// as a separate context: writes through one are reported to the others, the
// way a browser reports a storage change to every other tab.
type MemoryHub struct {
	mu       sync.Mutex
	items    map[string]string
	backends map[*MemoryBackend]struct{}
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		items:    make(map[string]string),
		backends: make(map[*MemoryBackend]struct{}),
	}
}

// Backend opens a new context on the hub.
func (h *MemoryHub) Backend() *MemoryBackend {
	b := &MemoryBackend{hub: h}
	h.mu.Lock()
	h.backends[b] = struct{}{}
	h.mu.Unlock()
	return b
}

// Seed stores raw as-is without notifying anyone. Useful for preparing
// fixtures, including malformed ones.
func (h *MemoryHub) Seed(key, raw string) {
	h.mu.Lock()
	h.items[key] = raw
	h.mu.Unlock()
}

// Raw returns the stored text for key.
func (h *MemoryHub) Raw(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.items[key]
	return v, ok
}

func (h *MemoryHub) broadcast(from *MemoryBackend, c Change) {
	h.mu.Lock()
	targets := make([]*MemoryBackend, 0, len(h.backends))
	for b := range h.backends {
		if b != from {
			targets = append(targets, b)
		}
	}
	h.mu.Unlock()

	for _, b := range targets {
		b.deliver(c)
	}
}

// MemoryBackend is one context on a MemoryHub.
type MemoryBackend struct {
	hub *MemoryHub

	mu        sync.Mutex
	listeners listeners
	closed    bool
}

func (b *MemoryBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	if b.isClosed() {
		return "", false, ErrClosed
	}
	v, ok := b.hub.Raw(key)
	return v, ok, nil
}

func (b *MemoryBackend) SetItem(_ context.Context, key, value string) error {
	if b.isClosed() {
		return ErrClosed
	}
	b.hub.Seed(key, value)
	b.hub.broadcast(b, Change{Key: key, Value: value})
	return nil
}

func (b *MemoryBackend) RemoveItem(_ context.Context, key string) error {
	if b.isClosed() {
		return ErrClosed
	}
	b.hub.mu.Lock()
	delete(b.hub.items, key)
	b.hub.mu.Unlock()
	b.hub.broadcast(b, Change{Key: key, Removed: true})
	return nil
}

func (b *MemoryBackend) Notify(fn func(Change)) func() {
	b.mu.Lock()
	id := b.listeners.add(fn)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.listeners.remove(id)
		b.mu.Unlock()
	}
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.hub.mu.Lock()
	delete(b.hub.backends, b)
	b.hub.mu.Unlock()
	return nil
}

func (b *MemoryBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *MemoryBackend) deliver(c Change) {
	b.mu.Lock()
	fns := b.listeners.snapshot()
	b.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
