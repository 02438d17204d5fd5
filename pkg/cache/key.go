package cache

import "strings"

// KeyPrefix prefixes every cache key in Redis.
const KeyPrefix = "igstream:cache"

// Kind is the kind of object cached under a key.
type Kind string

const (
	KindPost Kind = "post"
	KindUser Kind = "user"
)

// Key identifies one cached lookup.
type Key struct {
	Kind Kind

	// ID is the shortcode of a post or the username of a profile.
	ID string
}

// String returns the Redis key, e.g. igstream:cache:user:alice. Usernames
// are case insensitive and folded to lower case; shortcodes are not.
func (k Key) String() string {
	id := strings.TrimSpace(k.ID)
	if k.Kind == KindUser {
		id = strings.ToLower(id)
	}
	return KeyPrefix + ":" + string(k.Kind) + ":" + id
}
