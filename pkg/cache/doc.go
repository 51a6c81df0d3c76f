// Package cache provides the gateway's in-process response cache.
//
// The store keeps opaque response payloads with a per-entry TTL. Expired
// entries are treated as misses and removed lazily on read, so no entry is
// ever served past its TTL even without a background sweeper.
//
// List-style queries are invalidated through generation counters instead of
// key enumeration: every list key embeds the current generation of its
// collection, and bumping the generation orphans all previously built keys.
// Orphaned entries age out through their TTL. Counters are process-scoped;
// a restart is equivalent to a global invalidation.
//
// # Basic Usage
//
//	store := cache.NewStore()
//	gens := cache.NewGenerations()
//
//	key := cache.TaskListKey(filterKey, page, pageSize, gens.Current(cache.CollectionTasks))
//
//	data, err := store.Get(key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the task service, then:
//		store.Set(key, payload, 5*time.Minute)
//	}
//
//	// After a mutation:
//	gens.Bump(cache.CollectionTasks)
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - gateway_cache_hits_total - Cache hits
//   - gateway_cache_misses_total - Cache misses
//   - gateway_cache_evictions_total{reason} - Entries removed (expired, explicit)
//   - gateway_cache_entries - Current number of entries
//   - gateway_cache_generation_bumps_total{collection} - Generation bumps
package cache
