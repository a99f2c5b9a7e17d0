package storage

import (
	"sync"

	"github.com/backkem/mediapair/pkg/conf"
)

type key struct {
	deviceID string
	protocol conf.Protocol
}

// MemoryStore keeps credentials in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[key]string
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[key]string)}
}

// Load returns the token stored for deviceID and protocol.
func (m *MemoryStore) Load(deviceID string, protocol conf.Protocol) (string, error) {
	if err := validate(deviceID, protocol); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}
	token, ok := m.entries[key{deviceID, protocol}]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

// Save stores token, replacing any earlier one.
func (m *MemoryStore) Save(deviceID string, protocol conf.Protocol, token string) error {
	if err := validate(deviceID, protocol); err != nil {
		return err
	}
	if err := validateToken(token); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries[key{deviceID, protocol}] = token
	return nil
}

// Delete removes a stored token.
func (m *MemoryStore) Delete(deviceID string, protocol conf.Protocol) error {
	if err := validate(deviceID, protocol); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	k := key{deviceID, protocol}
	if _, ok := m.entries[k]; !ok {
		return ErrNotFound
	}
	delete(m.entries, k)
	return nil
}

// List returns every entry ordered by device and protocol.
func (m *MemoryStore) List() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Entry, 0, len(m.entries))
	for k, token := range m.entries {
		out = append(out, Entry{DeviceID: k.deviceID, Protocol: k.protocol, Token: token})
	}
	sortEntries(out)
	return out, nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ CredentialStore = (*MemoryStore)(nil)
