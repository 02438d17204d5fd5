// Package ratelimit spaces outbound web API requests so that every process
// sharing one Redis instance stays within a single request quota.
//
// Requests are admitted one slot at a time: a slot is a Redis key created
// with SET NX PX for the configured interval, so at most one request per
// interval is let through across all processes. A throttling response from
// the API puts the whole quota into a cooldown that every process honours.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeySlot     = "igstream:rate_limit:slot"
	RedisKeyCooldown = "igstream:rate_limit:cooldown_until"
)

// Defaults for request spacing.
const (
	// DefaultInterval admits one request per 1.2 seconds.
	DefaultInterval = 1200 * time.Millisecond

	// DefaultCooldown is the pause applied after a throttling response.
	DefaultCooldown = 60 * time.Second
)

// RateLimitState is a snapshot of the shared request quota.
type RateLimitState struct {
	// CooldownUntil is when the current cooldown ends, zero if none.
	CooldownUntil time.Time `json:"cooldown_until"`

	// NextSlotIn is how long until the next request slot is free.
	NextSlotIn time.Duration `json:"next_slot_in"`

	// IsThrottled is true while a cooldown is active.
	IsThrottled bool `json:"is_throttled"`
}

// CooldownRemaining returns the time left in the cooldown, or 0.
func (s *RateLimitState) CooldownRemaining() time.Duration {
	if s.CooldownUntil.IsZero() {
		return 0
	}
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// NextRequestIn returns how long a caller would wait right now.
func (s *RateLimitState) NextRequestIn() time.Duration {
	return max(s.CooldownRemaining(), s.NextSlotIn)
}
