package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory credential store. It is safe for concurrent
// use and supports atomic replacement of the full credential set, which the
// config watcher uses on users-file reload.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]Credentials
}

// NewMemoryStore creates a store seeded with the given credentials.
func NewMemoryStore(creds []Credentials) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(creds)
	return s
}

// Get returns the credentials for the username.
func (s *MemoryStore) Get(_ context.Context, username string) (*Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Replace swaps the full credential set atomically.
func (s *MemoryStore) Replace(creds []Credentials) {
	users := make(map[string]Credentials, len(creds))
	for _, c := range creds {
		users[c.Username] = c
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
}

// Len returns the number of stored credentials.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
