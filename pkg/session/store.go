// Package session persists the authenticated session (token + profile)
// across restarts, the client-side equivalent of origin-scoped storage.
package session

import (
	"sync"

	"frostgreet/pkg/domain"
)

// Store persists the current session. SetSession writes token and profile
// atomically: a reader sees both or neither. Session never fails; any read
// problem yields the empty session. Clear is idempotent.
type Store interface {
	SetSession(token string, user domain.UserProfile) error
	Session() domain.Session
	Clear() error
}

// MemoryStore keeps the session in-process. Useful for tests and one-shot
// tools that should not leave a token behind.
type MemoryStore struct {
	mu   sync.RWMutex
	sess domain.Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetSession replaces the stored session.
func (m *MemoryStore) SetSession(token string, user domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := user
	m.sess = domain.Session{Token: token, User: &u}
	return nil
}

// Session returns the current session.
func (m *MemoryStore) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess
}

// Clear drops the stored session.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = domain.Session{}
	return nil
}
