package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// KeyringBackend keeps values in the operating system's credential store.
// It has no change feed.
type KeyringBackend struct {
	ring    keyring.Keyring
	service string
}

// OpenKeyring opens the credential store described by cfg.
func OpenKeyring(cfg keyring.Config) (*KeyringBackend, error) {
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringBackend(ring, cfg.ServiceName), nil
}

func NewKeyringBackend(ring keyring.Keyring, service string) *KeyringBackend {
	return &KeyringBackend{ring: ring, service: service}
}

func (b *KeyringBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	item, err := b.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(item.Data), true, nil
}

func (b *KeyringBackend) SetItem(_ context.Context, key, value string) error {
	return b.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       b.service + " " + key,
		Description: "Stored by " + b.service,
	})
}

func (b *KeyringBackend) RemoveItem(_ context.Context, key string) error {
	err := b.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *KeyringBackend) Close() error {
	return nil
}
