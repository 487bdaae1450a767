package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory UserStore. It backs the server when no database
// is configured and the tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("finding %s: %w", email, ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) Register(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return fmt.Errorf("registering %s: %w", user.Email, ErrAlreadyExists)
	}
	s.users[user.Email] = user
	return nil
}

func (s *MemoryStore) Update(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; !ok {
		return fmt.Errorf("updating %s: %w", user.Email, ErrNotFound)
	}
	s.users[user.Email] = user
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
