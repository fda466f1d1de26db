// Package store provides the in-memory registries for users and their pets.
//
// Both stores are safe for unrestricted concurrent use. Operations never block
// on I/O, so they take no context. Callers always receive copies; stored values
// are only changed through the explicit Upsert and Remove operations.
package store

import (
	"errors"
	"sync"

	"github.com/rafaeljc/petlife/internal/pet"
)

var (
	// ErrEmptyName is returned when a caller tries to store an absent sentinel.
	ErrEmptyName = errors.New("store: empty name is reserved and cannot be stored")

	// ErrResourceExhausted is returned when a configured capacity bound is reached.
	ErrResourceExhausted = errors.New("store: capacity exhausted")
)

// Compile-time check to verify that MemoryUserStore implements UserRepository.
var _ UserRepository = (*MemoryUserStore)(nil)

// UserRepository defines the registry of user identities.
type UserRepository interface {
	// ListUsers returns a snapshot of all users. Order is unspecified.
	ListUsers() []pet.User

	// GetUser returns the user and true, or pet.EmptyUser and false.
	GetUser(name string) (pet.User, bool)

	// UpsertUser inserts or overwrites the user keyed by name.
	// Conflict detection is the caller's job.
	UpsertUser(u pet.User) error

	// RemoveUser deletes the user and reports whether it existed.
	// The user's pets are not touched.
	RemoveUser(name string) bool
}

// MemoryUserStore is a map guarded by a read/write mutex.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]pet.User
}

// NewMemoryUserStore creates an empty user registry.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]pet.User)}
}

func (s *MemoryUserStore) ListUsers() []pet.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]pet.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

func (s *MemoryUserStore) GetUser(name string) (pet.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[name]
	if !ok {
		return pet.EmptyUser, false
	}
	return u, true
}

func (s *MemoryUserStore) UpsertUser(u pet.User) error {
	if u.IsEmpty() {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.Name] = u
	return nil
}

func (s *MemoryUserStore) RemoveUser(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[name]; !ok {
		return false
	}
	delete(s.users, name)
	return true
}

// Count returns the number of registered users.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
