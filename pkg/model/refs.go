package model

import (
	"fmt"
	"strconv"
	"strings"
)

// UserRefKind tells which variant a UserRef holds.
type UserRefKind int

const (
	UserRefID UserRefKind = iota + 1
	UserRefName
	UserRefRecord
	UserRefPost
	UserRefThumb
)

// UserRef points at a user. Exactly one variant is set; the zero value is
// invalid. Build one with UserByID, UserByName, UserRecord, UserOfPost or
// UserOfThumb.
type UserRef struct {
	kind  UserRefKind
	id    int64
	name  string
	user  User
	post  Post
	thumb PostThumb
}

// UserByID refers to a user by numeric id.
func UserByID(id int64) UserRef { return UserRef{kind: UserRefID, id: id} }

// UserByName refers to a user by username.
func UserByName(name string) UserRef {
	return UserRef{kind: UserRefName, name: strings.TrimPrefix(strings.TrimSpace(name), "@")}
}

// UserRecord wraps an already resolved user.
func UserRecord(u User) UserRef { return UserRef{kind: UserRefRecord, user: u} }

// UserOfPost refers to the owner of a post.
func UserOfPost(p Post) UserRef { return UserRef{kind: UserRefPost, post: p} }

// UserOfThumb refers to the owner of a feed post.
func UserOfThumb(p PostThumb) UserRef { return UserRef{kind: UserRefThumb, thumb: p} }

// ParseUserRef reads an all-digit argument as an id and anything else as a
// username.
func ParseUserRef(s string) (UserRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UserRef{}, fmt.Errorf("empty user reference")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return UserByID(id), nil
	}
	return UserByName(s), nil
}

// Kind returns the variant.
func (r UserRef) Kind() UserRefKind { return r.kind }

// ID returns the numeric id of a UserRefID reference.
func (r UserRef) ID() int64 { return r.id }

// Name returns the username of a UserRefName reference.
func (r UserRef) Name() string { return r.name }

// User returns the record of a UserRefRecord reference.
func (r UserRef) User() User { return r.user }

// Post returns the post of a UserRefPost reference.
func (r UserRef) Post() Post { return r.post }

// Thumb returns the feed post of a UserRefThumb reference.
func (r UserRef) Thumb() PostThumb { return r.thumb }

// String implements fmt.Stringer.
func (r UserRef) String() string {
	switch r.kind {
	case UserRefID:
		return "user:" + formatInt(r.id)
	case UserRefName:
		return "user:@" + r.name
	case UserRefRecord:
		return "user:@" + r.user.Username
	case UserRefPost:
		return "user:owner-of:" + r.post.Shortcode
	case UserRefThumb:
		return "user:owner-of:" + r.thumb.Shortcode
	}
	return "user:invalid"
}

// PostRefKind tells which variant a PostRef holds.
type PostRefKind int

const (
	PostRefShortcode PostRefKind = iota + 1
	PostRefRecord
	PostRefThumb
)

// PostRef points at a post. Build one with PostByShortcode, PostRecord or
// PostOfThumb.
type PostRef struct {
	kind      PostRefKind
	shortcode string
	post      Post
	thumb     PostThumb
}

// PostByShortcode refers to a post by shortcode.
func PostByShortcode(shortcode string) PostRef {
	return PostRef{kind: PostRefShortcode, shortcode: strings.TrimSpace(shortcode)}
}

// PostRecord wraps an already resolved post.
func PostRecord(p Post) PostRef { return PostRef{kind: PostRefRecord, post: p} }

// PostOfThumb refers to the full detail of a feed post.
func PostOfThumb(p PostThumb) PostRef { return PostRef{kind: PostRefThumb, thumb: p} }

// Kind returns the variant.
func (r PostRef) Kind() PostRefKind { return r.kind }

// Shortcode returns the shortcode the reference resolves through, or "" for
// a resolved record.
func (r PostRef) Shortcode() string {
	switch r.kind {
	case PostRefShortcode:
		return r.shortcode
	case PostRefThumb:
		return r.thumb.Shortcode
	}
	return ""
}

// Post returns the record of a PostRefRecord reference.
func (r PostRef) Post() Post { return r.post }

// String implements fmt.Stringer.
func (r PostRef) String() string {
	if r.kind == PostRefRecord {
		return "post:" + r.post.Shortcode
	}
	if r.kind == 0 {
		return "post:invalid"
	}
	return "post:" + r.Shortcode()
}
