package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igstream_rate_limit_waits_total",
		Help: "Total number of requests that had to wait for a slot",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "igstream_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a request slot",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 30, 60, 300},
	})

	rateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igstream_rate_limit_cooldowns_total",
		Help: "Total number of cooldowns started after throttling responses",
	})
)

// Tracker admits requests against the shared quota in Redis.
type Tracker struct {
	redis    *redis.Client
	logger   zerolog.Logger
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval sets the minimum spacing between requests.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		redis:    redisClient,
		logger:   logger,
		interval: DefaultInterval,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the configured request spacing.
func (t *Tracker) Interval() time.Duration {
	return t.interval
}

// Wait blocks until the caller holds a request slot, honouring any active
// cooldown first. It returns early with the context error if ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	start := time.Now()
	waited := false
	defer func() {
		if waited {
			rateLimitWaitsTotal.Inc()
			rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cooldown, err := t.redis.PTTL(ctx, RedisKeyCooldown).Result()
		if err != nil {
			return fmt.Errorf("get cooldown: %w", err)
		}
		if cooldown > 0 {
			waited = true
			t.logger.Warn().Dur("cooldown", cooldown).Msg("Rate limit cooldown active, waiting")
			if err := t.sleep(ctx, cooldown); err != nil {
				return err
			}
			continue
		}

		ok, err := t.redis.SetNX(ctx, RedisKeySlot, time.Now().UnixMilli(), t.interval).Result()
		if err != nil {
			return fmt.Errorf("reserve request slot: %w", err)
		}
		if ok {
			return nil
		}

		next, err := t.redis.PTTL(ctx, RedisKeySlot).Result()
		if err != nil {
			return fmt.Errorf("get next slot: %w", err)
		}
		if next <= 0 {
			// Slot expired between SETNX and PTTL.
			continue
		}
		waited = true
		t.logger.Debug().Dur("wait", next).Msg("Waiting for request slot")
		if err := t.sleep(ctx, next); err != nil {
			return err
		}
	}
}

// Penalize starts a cooldown of d for every process sharing the quota. An
// active cooldown that ends later is left in place.
func (t *Tracker) Penalize(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = DefaultCooldown
	}

	current, err := t.redis.PTTL(ctx, RedisKeyCooldown).Result()
	if err != nil {
		return fmt.Errorf("get cooldown: %w", err)
	}
	if current >= d {
		return nil
	}

	until := time.Now().Add(d)
	if err := t.redis.Set(ctx, RedisKeyCooldown, until.UnixMilli(), d).Err(); err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}

	rateLimitCooldownsTotal.Inc()
	t.logger.Warn().
		Dur("cooldown", d).
		Time("until", until).
		Msg("Throttled by API, cooldown started")
	return nil
}

// GetState retrieves the current quota state from Redis. Missing keys mean
// a free slot and no cooldown.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	state := &RateLimitState{}

	untilStr, err := t.redis.Get(ctx, RedisKeyCooldown).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cooldown: %w", err)
	}
	if untilStr != "" {
		ms, err := strconv.ParseInt(untilStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse cooldown: %w", err)
		}
		state.CooldownUntil = time.UnixMilli(ms)
		state.IsThrottled = true
	}

	next, err := t.redis.PTTL(ctx, RedisKeySlot).Result()
	if err != nil {
		return nil, fmt.Errorf("get next slot: %w", err)
	}
	if next > 0 {
		state.NextSlotIn = next
	}

	return state, nil
}

// Reset clears the slot and any cooldown.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeySlot, RedisKeyCooldown).Err(); err != nil {
		return fmt.Errorf("reset rate limit state: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
