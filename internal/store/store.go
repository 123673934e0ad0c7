// Package store holds the in-memory pet records, the source of truth while
// the process runs.
package store

import (
	"errors"
	"sync"

	"turtle-bot/internal/model"
)

// ErrNotFound is returned when no pet exists for a user.
var ErrNotFound = errors.New("pet not found")

// PetStore maps user IDs to pets. All reads and writes exchange clones,
// so callers never share a record with the store.
type PetStore struct {
	mu   sync.RWMutex
	pets map[int64]*model.Pet
}

// NewPetStore creates an empty store.
func NewPetStore() *PetStore {
	return &PetStore{pets: make(map[int64]*model.Pet)}
}

// Get returns a copy of the user's pet.
func (s *PetStore) Get(userID int64) (*model.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// Exists reports whether the user has a pet.
func (s *PetStore) Exists(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pets[userID]
	return ok
}

// Put stores a copy of p under p.UserID, replacing any previous record.
func (s *PetStore) Put(p *model.Pet) {
	c := p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pets[c.UserID] = c
}

// Create stores p only if the user has no pet yet.
// Returns the stored record and whether it was newly created.
func (s *PetStore) Create(p *model.Pet) (*model.Pet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pets[p.UserID]; ok {
		return existing.Clone(), false
	}
	c := p.Clone()
	s.pets[c.UserID] = c
	return c.Clone(), true
}

// Len returns the number of pets.
func (s *PetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pets)
}

// Snapshot returns a deep copy of every pet keyed by user ID.
func (s *PetStore) Snapshot() map[int64]*model.Pet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]*model.Pet, len(s.pets))
	for id, p := range s.pets {
		out[id] = p.Clone()
	}
	return out
}

// Restore replaces the store contents with copies of pets.
func (s *PetStore) Restore(pets map[int64]*model.Pet) {
	next := make(map[int64]*model.Pet, len(pets))
	for id, p := range pets {
		next[id] = p.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pets = next
}
