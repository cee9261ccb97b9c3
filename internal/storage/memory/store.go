package memory

import (
	"context"
	"sync"
)

// Store is the default CredentialStore: process-scoped, no durability. The
// design does not require self-registered accounts to outlive the process.
type Store struct {
	mu    sync.RWMutex
	users map[string]string // username -> password hash
}

func New() *Store {
	return &Store{users: make(map[string]string)}
}

func (s *Store) Save(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	s.users[username] = passwordHash
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, username string) (string, bool, error) {
	s.mu.RLock()
	hash, ok := s.users[username]
	s.mu.RUnlock()
	return hash, ok, nil
}
