package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igstream_cache_hits_total",
			Help: "Lookups served from the Redis cache",
		},
		[]string{"kind"}, // "post", "user"
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igstream_cache_misses_total",
			Help: "Lookups not found in the Redis cache",
		},
		[]string{"kind"},
	)

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igstream_cache_errors_total",
			Help: "Redis cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
