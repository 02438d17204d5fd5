// Package cache keeps post and profile lookups in Redis.
//
// Feed pages are never cached: a feed is read once, newest first, and a
// stale page would hide new posts. Post details and profiles, on the other
// hand, are looked up repeatedly (resolving a user id alone costs three
// requests) and change slowly, so Fetcher serves them from Redis for a fixed
// TTL before asking the web API again.
//
// The cache is opt-in. feeds.New never caches on its own; a lookup is
// cached only when the caller wraps its client in a Fetcher. The igstream
// CLI does so only when a Redis address is configured and cache.ttl is
// positive. Fetched entities are never kept beyond the TTL, and feed
// records are never stored.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	api, _ := client.New(client.DefaultConfig("my-app/1.0"))
//	cached := cache.NewFetcher(api, cache.NewManager(redisClient, 6*time.Hour))
//
//	f := feeds.New(cached)
//
// # Failure Behaviour
//
// Redis errors never fail a lookup. A failed read falls through to the web
// API and a failed write is logged and dropped. Errors from the web API,
// ErrNotFound included, are not cached.
//
// # Metrics
//
//   - igstream_cache_hits_total{kind} - lookups served from Redis
//   - igstream_cache_misses_total{kind} - lookups sent to the web API
//   - igstream_cache_errors_total{operation} - Redis failures by get, set, delete
package cache
