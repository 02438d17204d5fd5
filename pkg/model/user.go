package model

import "time"

// User is a profile.
type User struct {
	Biography         string
	Website           string
	FollowedByCount   int64
	FollowsCount      int64
	FullName          string
	UserID            int64
	IsBusinessAccount bool
	IsJoinedRecently  bool
	IsPrivate         bool
	IsVerified        bool
	ProfilePicURL     string
	Username          string
	ConnectedFBPage   string
	MediaCount        int64
}

var userColumns = []string{
	"biography",
	"website",
	"followed_by_count",
	"follows_count",
	"full_name",
	"user_id",
	"is_business_account",
	"is_joined_recently",
	"is_private",
	"is_verified",
	"profile_pic_url",
	"username",
	"connected_fb_page",
	"media_count",
}

// Columns implements Record.
func (u User) Columns() []string {
	return append([]string(nil), userColumns...)
}

// Row implements Record.
func (u User) Row() []string {
	return []string{
		u.Biography,
		u.Website,
		formatInt(u.FollowedByCount),
		formatInt(u.FollowsCount),
		u.FullName,
		formatInt(u.UserID),
		formatBool(u.IsBusinessAccount),
		formatBool(u.IsJoinedRecently),
		formatBool(u.IsPrivate),
		formatBool(u.IsVerified),
		u.ProfilePicURL,
		u.Username,
		u.ConnectedFBPage,
		formatInt(u.MediaCount),
	}
}

// Attr implements Record.
func (u User) Attr(name string) (int64, bool) {
	switch name {
	case "followed_by_count":
		return u.FollowedByCount, true
	case "follows_count":
		return u.FollowsCount, true
	case "user_id":
		return u.UserID, true
	case "media_count":
		return u.MediaCount, true
	}
	return 0, false
}

// Comment is a single comment on a post.
type Comment struct {
	CommentID     string
	PostShortcode string
	OwnerID       int64
	OwnerUsername string
	Text          string
	CreatedAt     time.Time
	LikeCount     int64
	Hashtags      Tags
	Mentions      Tags
}

var commentColumns = []string{
	"comment_id",
	"post_shortcode",
	"owner_id",
	"owner_username",
	"text",
	"created_at",
	"like_count",
	"hashtags",
	"mentions",
}

// Columns implements Record.
func (c Comment) Columns() []string {
	return append([]string(nil), commentColumns...)
}

// Row implements Record.
func (c Comment) Row() []string {
	return []string{
		c.CommentID,
		c.PostShortcode,
		formatInt(c.OwnerID),
		c.OwnerUsername,
		c.Text,
		formatTime(c.CreatedAt),
		formatInt(c.LikeCount),
		c.Hashtags.String(),
		c.Mentions.String(),
	}
}

// Attr implements Record.
func (c Comment) Attr(name string) (int64, bool) {
	switch name {
	case "owner_id":
		return c.OwnerID, true
	case "created_at":
		return timeAttr(c.CreatedAt), true
	case "like_count":
		return c.LikeCount, true
	}
	return 0, false
}
