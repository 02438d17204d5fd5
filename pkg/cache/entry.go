package cache

import (
	"encoding/json"
	"time"
)

// Entry is a cached lookup result.
type Entry struct {
	// Data is the raw post or profile object as returned by the web API.
	Data json.RawMessage `json:"data"`

	CachedAt time.Time `json:"cached_at"`
	Expires  time.Time `json:"expires"`
}

// IsExpired reports whether the entry is past its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiry, or 0 once expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
