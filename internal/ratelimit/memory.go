package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	first time.Time
	count int
}

// MemoryLimiter implements the failure window in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
	}
}

// Blocked reports whether identity is locked out at now. An elapsed window
// resets the entry.
func (l *MemoryLimiter) Blocked(_ context.Context, identity string, now time.Time) (Result, error) {
	if identity == "" {
		return Result{}, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.entries[identity]
	if entry == nil {
		return Result{}, nil
	}
	if now.Sub(entry.first) >= Window {
		delete(l.entries, identity)
		return Result{}, nil
	}
	if entry.count >= MaxFailures {
		return Result{Blocked: true, Reset: entry.first.Add(Window)}, nil
	}
	return Result{}, nil
}

// Fail records a failed attempt for identity at now.
func (l *MemoryLimiter) Fail(_ context.Context, identity string, now time.Time) error {
	if identity == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.entries[identity]
	if entry == nil || now.Sub(entry.first) >= Window {
		l.entries[identity] = &memoryEntry{first: now, count: 1}
		return nil
	}
	entry.count++
	return nil
}

// Clear drops all tracking for identity.
func (l *MemoryLimiter) Clear(_ context.Context, identity string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identity)
	return nil
}
