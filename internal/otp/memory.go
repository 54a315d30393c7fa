package otp

import (
	"context"
	"sync"
)

// MemoryStore keeps passcode records and attempt counters in process memory.
// All access goes through one mutex since reads and writes interleave across
// concurrent reset requests.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]Record
	attempts map[string]int
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		attempts: make(map[string]int),
	}
}

// Get returns the record for identity, or nil when absent.
func (s *MemoryStore) Get(_ context.Context, identity string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identity]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put creates or replaces the record for identity.
func (s *MemoryStore) Put(_ context.Context, identity string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identity] = rec
	return nil
}

// Delete removes the record for identity.
func (s *MemoryStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identity)
	return nil
}

// Attempts returns the failed-attempt count for identity.
func (s *MemoryStore) Attempts(_ context.Context, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[identity], nil
}

// IncrementAttempts bumps and returns the failed-attempt count.
func (s *MemoryStore) IncrementAttempts(_ context.Context, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[identity]++
	return s.attempts[identity], nil
}

// ResetAttempts clears the failed-attempt count for identity.
func (s *MemoryStore) ResetAttempts(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, identity)
	return nil
}
