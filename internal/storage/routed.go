package storage

import (
	"context"
	"errors"
)

// RoutedBackend sends a fixed set of keys to a secondary backend, typically
// secrets to the keyring, and everything else to the primary. Only the
// primary's change feed is forwarded.
type RoutedBackend struct {
	primary   Backend
	secondary Backend
	keys      map[string]struct{}
}

func NewRoutedBackend(primary, secondary Backend, keys ...string) *RoutedBackend {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &RoutedBackend{primary: primary, secondary: secondary, keys: set}
}

func (b *RoutedBackend) route(key string) Backend {
	if _, ok := b.keys[key]; ok {
		return b.secondary
	}
	return b.primary
}

func (b *RoutedBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	return b.route(key).GetItem(ctx, key)
}

func (b *RoutedBackend) SetItem(ctx context.Context, key, value string) error {
	return b.route(key).SetItem(ctx, key, value)
}

func (b *RoutedBackend) RemoveItem(ctx context.Context, key string) error {
	return b.route(key).RemoveItem(ctx, key)
}

func (b *RoutedBackend) Notify(fn func(Change)) func() {
	n, ok := b.primary.(Notifier)
	if !ok {
		return func() {}
	}
	return n.Notify(func(c Change) {
		if _, routed := b.keys[c.Key]; routed {
			return
		}
		fn(c)
	})
}

func (b *RoutedBackend) Close() error {
	return errors.Join(b.primary.Close(), b.secondary.Close())
}
