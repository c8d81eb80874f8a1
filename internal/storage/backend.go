package storage

import (
	"context"
	"errors"
)

var (
	ErrClosed      = errors.New("storage: closed")
	ErrKeyRequired = errors.New("storage: key is required")
)

// Backend is a synchronous string key/value store.
type Backend interface {
	// GetItem returns ok=false when key is absent.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// Change describes a value written or removed by another context.
type Change struct {
	Key     string
	Value   string
	Removed bool
}

// Notifier is implemented by backends that can report changes made by other
// contexts. Changes made through the backend itself are never reported.
type Notifier interface {
	Notify(fn func(Change)) (cancel func())
}

// listeners is the small registry shared by the notifying backends.
type listeners struct {
	next uint64
	fns  map[uint64]func(Change)
}

func (l *listeners) add(fn func(Change)) uint64 {
	if l.fns == nil {
		l.fns = make(map[uint64]func(Change))
	}
	l.next++
	l.fns[l.next] = fn
	return l.next
}

func (l *listeners) remove(id uint64) {
	delete(l.fns, id)
}

func (l *listeners) snapshot() []func(Change) {
	out := make([]func(Change), 0, len(l.fns))
	for _, fn := range l.fns {
		out = append(out, fn)
	}
	return out
}
