package ratelimit

// Package ratelimit provides a key-expiry counter abstraction so request
// limiting is injectable and testable without process-wide singletons.
// A single instance can use MemoryStore; a multi-instance deployment
// shares counts through RedisStore.

import (
	"context"
	"sync"
	"time"
)

// Store counts hits per key within a rolling window. Incr returns the
// count including the current hit.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is an in-process Store. Counters reset when their window
// elapses; expired entries are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Incr bumps the counter for key, starting a fresh window if the previous
// one has elapsed.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &memoryEntry{resetAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}
