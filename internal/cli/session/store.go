// Package session holds the client-side cache of who is currently logged in.
//
// The cache is not the source of truth: the server session cookie is. A
// Store starts empty in every process and is filled by a session refresh.
package session

import (
	"sort"
	"sync"
)

// Reader is the read-only view handed to route guards and UI code
type Reader interface {
	Read() *Identity
	Subscribe(fn func(*Identity)) (unsubscribe func())
}

// Store is a single-slot observable cell. A nil value means "not logged in".
// Only the auth operations write to it.
type Store struct {
	mu     sync.RWMutex
	value  *Identity
	subs   map[int]func(*Identity)
	nextID int
}

var _ Reader = (*Store)(nil)

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{subs: make(map[int]func(*Identity))}
}

// Read returns the current identity, or nil when empty
func (s *Store) Read() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the current identity and notifies subscribers
func (s *Store) Set(id *Identity) {
	s.mu.Lock()
	s.value = id
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(id)
	}
}

// Clear empties the store
func (s *Store) Clear() {
	s.Set(nil)
}

// Subscribe registers fn to be called after every write with the new value.
// Callbacks run on the writer's goroutine, in subscription order.
func (s *Store) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// snapshot copies subscribers so callbacks run without the lock held. Caller holds mu.
func (s *Store) snapshot() []func(*Identity) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(*Identity), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}
