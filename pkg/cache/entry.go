package cache

import (
	"time"
)

// Entry represents a cached response payload.
type Entry struct {
	// Value is the opaque response payload.
	Value []byte

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time
}

// Expired returns true if the entry's TTL has elapsed.
func (e *Entry) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
