package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss indicates the requested key was not found or has expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is a thread-safe in-process key/value cache with per-entry TTL.
// Values are opaque payloads; each key is independently readable and
// writable, so a read racing an invalidation may observe either the old
// value or a miss.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves the payload for key.
// Returns ErrCacheMiss if the key doesn't exist. Expired entries are
// removed at read time and reported as misses.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	if entry.Expired() {
		// Lazy expiry: drop the entry so it is never served again.
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have replaced it.
		if current, still := s.entries[key]; still && current.Expired() {
			delete(s.entries, key)
			CacheEvictions.WithLabelValues("expired").Inc()
			CacheEntries.Set(float64(len(s.entries)))
		}
		s.mu.Unlock()
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return entry.Value, nil
}

// Set stores value under key with the given TTL, overwriting any
// existing entry. Last writer wins; values are idempotent projections
// of downstream state, so no update-if-absent semantics are needed.
// Entries with a non-positive TTL are not stored.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	s.entries[key] = &Entry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	CacheEntries.Set(float64(len(s.entries)))
	s.mu.Unlock()
}

// Invalidate removes a single entry. Removing an absent key is a no-op.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		CacheEvictions.WithLabelValues("explicit").Inc()
		CacheEntries.Set(float64(len(s.entries)))
	}
	s.mu.Unlock()
}

// Len returns the current number of entries, including not yet
// collected expired ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
