package mocks

import "sync"

// APIKeySinkMock records every key pushed to it.
type APIKeySinkMock struct {
	mu   sync.Mutex
	Keys []string
}

func (m *APIKeySinkMock) SetAPIKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
}

func (m *APIKeySinkMock) Received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Keys...)
}
