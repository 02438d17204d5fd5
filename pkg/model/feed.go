package model

import (
	"fmt"
	"strings"
)

// FeedKind identifies a paginated endpoint.
type FeedKind string

const (
	// FeedTag is the feed of posts carrying a hashtag.
	FeedTag FeedKind = "tag"

	// FeedLocation is the feed of posts tagged with a location.
	FeedLocation FeedKind = "location"

	// FeedUser is the timeline of a single user.
	FeedUser FeedKind = "user"

	// FeedComments is the comment thread of a single post.
	FeedComments FeedKind = "comments"
)

// queryHashes are the persisted GraphQL query identifiers per endpoint.
var queryHashes = map[FeedKind]string{
	FeedTag:      "f92f56d47dc7a55b606908374b43a314",
	FeedLocation: "1b84447a4d8b6d6d0426fefb34514485",
	FeedUser:     "e7e2f4da4b02303f74f0841279e52d76",
	FeedComments: "f0986789a5c5d17c2400faebf16efd0d",
}

// QueryHash returns the GraphQL query identifier of the endpoint, or "" for
// an unknown kind.
func (k FeedKind) QueryHash() string {
	return queryHashes[k]
}

// KindForQueryHash is the inverse of QueryHash.
func KindForQueryHash(hash string) (FeedKind, bool) {
	for k, h := range queryHashes {
		if h == hash {
			return k, true
		}
	}
	return "", false
}

// DefaultPageSize is the number of edges requested per page.
const DefaultPageSize = 50

// ParseFeedKind converts a textual kind.
func ParseFeedKind(s string) (FeedKind, error) {
	switch k := FeedKind(strings.ToLower(strings.TrimSpace(s))); k {
	case FeedTag, FeedLocation, FeedUser, FeedComments:
		return k, nil
	}
	return "", fmt.Errorf("unknown feed kind %q", s)
}

// FeedRequest names one paginated feed: an endpoint kind, the identifier it
// is keyed on (tag name, location id, user id, shortcode) and the page size.
type FeedRequest struct {
	Kind     FeedKind
	ID       string
	PageSize int
}

// NewFeedRequest builds a request with the default page size.
func NewFeedRequest(kind FeedKind, id string) FeedRequest {
	return FeedRequest{Kind: kind, ID: id, PageSize: DefaultPageSize}
}

// String implements fmt.Stringer.
func (r FeedRequest) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
