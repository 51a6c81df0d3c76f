package cache

import (
	"sync"
)

// Collection identifiers for generation counters.
const (
	// CollectionTasks versions all cached task list queries.
	CollectionTasks = "tasks"
)

// Generations holds one monotonically increasing counter per logical
// list collection. List cache keys embed the counter value read at lookup
// time, so bumping a counter makes every previously built key for that
// collection unreachable without enumerating the keys. Counters never
// reset while the process is alive and are not persisted anywhere; a
// restart acts as a global invalidation.
type Generations struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewGenerations creates an empty generation table.
func NewGenerations() *Generations {
	return &Generations{
		counters: make(map[string]int64),
	}
}

// Current returns the current generation of a collection.
// Unknown collections start at generation 0.
func (g *Generations) Current(collection string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counters[collection]
}

// Bump atomically increments the collection's generation and returns
// the new value. Concurrent bumps never lose increments.
func (g *Generations) Bump(collection string) int64 {
	g.mu.Lock()
	g.counters[collection]++
	v := g.counters[collection]
	g.mu.Unlock()

	GenerationBumps.WithLabelValues(collection).Inc()
	return v
}
