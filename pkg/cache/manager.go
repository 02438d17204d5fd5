package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the key is not cached or expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a cached value that cannot be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultTTL is how long lookups are kept when no TTL is configured.
const DefaultTTL = 6 * time.Hour

// Manager stores entries in Redis with a fixed TTL.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a manager. A non-positive ttl selects DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the lifetime of new entries.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get returns the entry under key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	// Redis expires the key itself; this guards against clock skew between
	// writers.
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// Set stores data under key for the manager's TTL.
func (m *Manager) Set(ctx context.Context, key Key, data json.RawMessage) error {
	if len(data) == 0 {
		return fmt.Errorf("cache entry cannot be empty")
	}

	now := m.now()
	payload, err := json.Marshal(Entry{
		Data:     data,
		CachedAt: now,
		Expires:  now.Add(m.ttl),
	})
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), payload, m.ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the entry under key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
