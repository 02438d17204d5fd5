package model

import (
	"fmt"
	"strings"
	"time"
)

// PostThumb is a post as it appears in a paginated feed (tag, location or
// user timeline). It carries fewer fields than a full Post.
type PostThumb struct {
	PostID       string
	OwnerID      int64
	Caption      string
	Shortcode    string
	CommentCount int64
	LikeCount    int64
	CreatedAt    time.Time
	ImgHeight    int64
	ImgWidth     int64
	ImgURL       string
	IsVideo      bool
	Hashtags     Tags
	Mentions     Tags
}

var thumbColumns = []string{
	"post_num_id",
	"owner_num_id",
	"caption",
	"shortcode",
	"comment_count",
	"like_count",
	"created_at",
	"img_height",
	"img_width",
	"img_url",
	"is_video",
	"hashtags",
	"mentions",
}

// Columns implements Record.
func (p PostThumb) Columns() []string {
	return append([]string(nil), thumbColumns...)
}

// Row implements Record.
func (p PostThumb) Row() []string {
	return []string{
		p.PostID,
		formatInt(p.OwnerID),
		p.Caption,
		p.Shortcode,
		formatInt(p.CommentCount),
		formatInt(p.LikeCount),
		formatTime(p.CreatedAt),
		formatInt(p.ImgHeight),
		formatInt(p.ImgWidth),
		p.ImgURL,
		formatBool(p.IsVideo),
		p.Hashtags.String(),
		p.Mentions.String(),
	}
}

// Attr implements Record.
func (p PostThumb) Attr(name string) (int64, bool) {
	switch name {
	case "owner_num_id":
		return p.OwnerID, true
	case "comment_count":
		return p.CommentCount, true
	case "like_count":
		return p.LikeCount, true
	case "created_at":
		return timeAttr(p.CreatedAt), true
	case "img_height":
		return p.ImgHeight, true
	case "img_width":
		return p.ImgWidth, true
	case "engagement":
		return p.Engagement(), true
	}
	return 0, false
}

// Engagement is the sum of likes and comments.
func (p PostThumb) Engagement() int64 {
	return p.LikeCount + p.CommentCount
}

// SimpleString is a one-line summary used by terminal output.
func (p PostThumb) SimpleString() string {
	return simpleString(p.Shortcode, p.CreatedAt, p.Caption)
}

// Post is the full detail of a single post.
type Post struct {
	PostID              int64
	Shortcode           string
	ImgHeight           int64
	ImgWidth            int64
	DisplayURL          string
	IsVideo             bool
	CaptionIsEdited     bool
	CreatedAt           time.Time
	LikeCount           int64
	CommentCount        int64
	LocationID          int64
	LocationName        string
	LocationAddressJSON string
	OwnerID             int64
	OwnerUsername       string
	OwnerFullName       string
	IsAd                bool
	Caption             string
	UsersInPhoto        []string
	Hashtags            Tags
	Mentions            Tags
}

var postColumns = []string{
	"post_num_id",
	"shortcode",
	"img_height",
	"img_width",
	"display_url",
	"is_video",
	"caption_is_edited",
	"created_at",
	"like_count",
	"comment_count",
	"location_id",
	"location_name",
	"location_address_json",
	"owner_id",
	"owner_username",
	"owner_full_name",
	"is_ad",
	"caption",
	"users_in_photo",
	"hashtags",
	"mentions",
}

// Columns implements Record.
func (p Post) Columns() []string {
	return append([]string(nil), postColumns...)
}

// Row implements Record.
func (p Post) Row() []string {
	return []string{
		formatInt(p.PostID),
		p.Shortcode,
		formatInt(p.ImgHeight),
		formatInt(p.ImgWidth),
		p.DisplayURL,
		formatBool(p.IsVideo),
		formatBool(p.CaptionIsEdited),
		formatTime(p.CreatedAt),
		formatInt(p.LikeCount),
		formatInt(p.CommentCount),
		formatInt(p.LocationID),
		p.LocationName,
		p.LocationAddressJSON,
		formatInt(p.OwnerID),
		p.OwnerUsername,
		p.OwnerFullName,
		formatBool(p.IsAd),
		p.Caption,
		strings.Join(p.UsersInPhoto, ","),
		p.Hashtags.String(),
		p.Mentions.String(),
	}
}

// Attr implements Record.
func (p Post) Attr(name string) (int64, bool) {
	switch name {
	case "post_num_id":
		return p.PostID, true
	case "img_height":
		return p.ImgHeight, true
	case "img_width":
		return p.ImgWidth, true
	case "created_at":
		return timeAttr(p.CreatedAt), true
	case "like_count":
		return p.LikeCount, true
	case "comment_count":
		return p.CommentCount, true
	case "location_id":
		return p.LocationID, true
	case "owner_id":
		return p.OwnerID, true
	case "engagement":
		return p.Engagement(), true
	}
	return 0, false
}

// Engagement is the sum of likes and comments.
func (p Post) Engagement() int64 {
	return p.LikeCount + p.CommentCount
}

// SimpleString is a one-line summary used by terminal output.
func (p Post) SimpleString() string {
	return simpleString(p.Shortcode, p.CreatedAt, p.Caption)
}

func simpleString(shortcode string, created time.Time, caption string) string {
	caption = strings.ReplaceAll(truncate(caption, 30), "\n", " ")
	return fmt.Sprintf("%s %s %s", shortcode, created.UTC().Format(time.DateTime), caption)
}
