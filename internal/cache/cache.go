// Package cache provides a small in-process TTL cache. The ranking pipeline
// is guarded by a singleflight gate on top of this store, so a miss never
// fans out into concurrent upstream fetches; the store itself only has to be
// safe under concurrent readers and writers.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock returns the current time. Injectable so tests can control expiry.
type Clock func() time.Time

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Store is a TTL cache keyed by string.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	now     Clock

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Store using the real clock.
func New[T any]() *Store[T] {
	return NewWithClock[T](time.Now)
}

// NewWithClock creates a Store with an injected clock.
func NewWithClock[T any](now Clock) *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		now:     now,
	}
}

// Get returns the value for key if present and not expired.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().After(e.expiresAt) {
		if ok {
			delete(s.entries, key)
		}
		s.misses.Add(1)
		var zero T
		return zero, false
	}
	s.hits.Add(1)
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (s *Store[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[T]{value: value, expiresAt: s.now().Add(ttl)}
}

// Delete removes key if present.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Clear removes every entry. Counters are kept.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[T])
}

// Stats returns cumulative hit and miss counts.
func (s *Store[T]) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
