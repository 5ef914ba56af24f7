package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGet(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := NewWithClock[string](func() time.Time { return now })

	s.Set("k", "v", 30*time.Second)

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := NewWithClock[int](func() time.Time { return now })

	s.Set("k", 42, 30*time.Second)

	// exactly at expiry still counts
	now = now.Add(30 * time.Second)
	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	now = now.Add(time.Nanosecond)
	_, ok = s.Get("k")
	assert.False(t, ok)

	// expired entries stay gone even if the clock moves back
	now = now.Add(-time.Minute)
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestStoreDeleteAndClear(t *testing.T) {
	s := New[int]()
	s.Set("a", 1, time.Minute)
	s.Set("b", 2, time.Minute)

	s.Delete("a")
	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Clear()
	_, ok = s.Get("b")
	assert.False(t, ok)
}

func TestStoreIgnoresNonPositiveTTL(t *testing.T) {
	s := New[int]()
	s.Set("k", 1, 0)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStoreStats(t *testing.T) {
	s := New[int]()
	s.Set("k", 1, time.Minute)

	s.Get("k")
	s.Get("k")
	s.Get("missing")

	hits, misses := s.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}
