package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_cache_hits_total",
			Help: "Total number of gateway cache hits",
		},
	)

	// CacheMisses tracks cache misses, including lazy-expired entries.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_cache_misses_total",
			Help: "Total number of gateway cache misses",
		},
	)

	// CacheEvictions tracks removed entries by reason.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_evictions_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"reason"}, // "expired", "explicit"
	)

	// CacheEntries tracks the current number of entries in the store.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_cache_entries",
			Help: "Current number of entries in the gateway cache",
		},
	)

	// GenerationBumps tracks generation counter bumps by collection.
	GenerationBumps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_generation_bumps_total",
			Help: "Total number of list generation bumps by collection",
		},
		[]string{"collection"},
	)
)
