package feeds

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/Sternrassler/igstream/pkg/pagination"
)

// errMalformed marks a node that lacks an identifying field.
var errMalformed = errors.New("malformed node")

// flexInt decodes numbers sent either as JSON numbers or as strings. Null,
// empty and unparseable values decode to 0.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		fl, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil {
			*f = 0
			return nil
		}
		n = int64(fl)
	}
	*f = flexInt(n)
	return nil
}

type count struct {
	Count flexInt `json:"count"`
}

type dimensions struct {
	Height flexInt `json:"height"`
	Width  flexInt `json:"width"`
}

type captionEdges struct {
	Edges []struct {
		Node struct {
			Text string `json:"text"`
		} `json:"node"`
	} `json:"edges"`
}

func (c captionEdges) text() string {
	if len(c.Edges) == 0 {
		return ""
	}
	return c.Edges[0].Node.Text
}

func unixTime(ts flexInt) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(int64(ts), 0).UTC()
}

// thumbNode is a post as served in tag, location and user feeds.
type thumbNode struct {
	ID    string `json:"id"`
	Owner struct {
		ID flexInt `json:"id"`
	} `json:"owner"`
	Caption          captionEdges `json:"edge_media_to_caption"`
	Shortcode        string       `json:"shortcode"`
	Comments         count        `json:"edge_media_to_comment"`
	Likes            count        `json:"edge_media_preview_like"`
	TakenAtTimestamp flexInt      `json:"taken_at_timestamp"`
	Dimensions       dimensions   `json:"dimensions"`
	DisplayURL       string       `json:"display_url"`
	IsVideo          bool         `json:"is_video"`
}

// MapThumb maps a feed node to a PostThumb. Nodes without id or shortcode
// are malformed.
func MapThumb(node json.RawMessage) (model.PostThumb, error) {
	var n thumbNode
	if err := json.Unmarshal(node, &n); err != nil {
		return model.PostThumb{}, fmt.Errorf("decode post thumb: %w", err)
	}
	if n.ID == "" || n.Shortcode == "" {
		return model.PostThumb{}, fmt.Errorf("post thumb: %w: missing id or shortcode", errMalformed)
	}

	caption := n.Caption.text()
	return model.PostThumb{
		PostID:       n.ID,
		OwnerID:      int64(n.Owner.ID),
		Caption:      caption,
		Shortcode:    n.Shortcode,
		CommentCount: int64(n.Comments.Count),
		LikeCount:    int64(n.Likes.Count),
		CreatedAt:    unixTime(n.TakenAtTimestamp),
		ImgHeight:    int64(n.Dimensions.Height),
		ImgWidth:     int64(n.Dimensions.Width),
		ImgURL:       n.DisplayURL,
		IsVideo:      n.IsVideo,
		Hashtags:     model.Hashtags(caption),
		Mentions:     model.Mentions(caption),
	}, nil
}

// postNode is the detail object of a single post.
type postNode struct {
	ID               flexInt    `json:"id"`
	Shortcode        string     `json:"shortcode"`
	Dimensions       dimensions `json:"dimensions"`
	DisplayURL       string     `json:"display_url"`
	IsVideo          bool       `json:"is_video"`
	CaptionIsEdited  bool       `json:"caption_is_edited"`
	TakenAtTimestamp flexInt    `json:"taken_at_timestamp"`
	Likes            count      `json:"edge_media_preview_like"`
	ParentComments   *count     `json:"edge_media_to_parent_comment"`
	Comments         *count     `json:"edge_media_to_comment"`
	Location         *struct {
		ID          flexInt `json:"id"`
		Name        string  `json:"name"`
		AddressJSON string  `json:"address_json"`
	} `json:"location"`
	Owner struct {
		ID       flexInt `json:"id"`
		Username string  `json:"username"`
		FullName string  `json:"full_name"`
	} `json:"owner"`
	IsAd        bool         `json:"is_ad"`
	Caption     captionEdges `json:"edge_media_to_caption"`
	TaggedUsers struct {
		Edges []struct {
			Node struct {
				User struct {
					Username string `json:"username"`
				} `json:"user"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_tagged_user"`
}

// MapPost maps a post detail object to a Post.
func MapPost(node json.RawMessage) (model.Post, error) {
	var n postNode
	if err := json.Unmarshal(node, &n); err != nil {
		return model.Post{}, fmt.Errorf("decode post: %w", err)
	}
	if n.Shortcode == "" {
		return model.Post{}, fmt.Errorf("post: %w: missing shortcode", errMalformed)
	}

	var comments int64
	switch {
	case n.ParentComments != nil:
		comments = int64(n.ParentComments.Count)
	case n.Comments != nil:
		comments = int64(n.Comments.Count)
	}

	p := model.Post{
		PostID:          int64(n.ID),
		Shortcode:       n.Shortcode,
		ImgHeight:       int64(n.Dimensions.Height),
		ImgWidth:        int64(n.Dimensions.Width),
		DisplayURL:      n.DisplayURL,
		IsVideo:         n.IsVideo,
		CaptionIsEdited: n.CaptionIsEdited,
		CreatedAt:       unixTime(n.TakenAtTimestamp),
		LikeCount:       int64(n.Likes.Count),
		CommentCount:    comments,
		OwnerID:         int64(n.Owner.ID),
		OwnerUsername:   n.Owner.Username,
		OwnerFullName:   n.Owner.FullName,
		IsAd:            n.IsAd,
		Caption:         n.Caption.text(),
	}
	if n.Location != nil {
		p.LocationID = int64(n.Location.ID)
		p.LocationName = n.Location.Name
		p.LocationAddressJSON = n.Location.AddressJSON
	}
	for _, e := range n.TaggedUsers.Edges {
		if u := e.Node.User.Username; u != "" {
			p.UsersInPhoto = append(p.UsersInPhoto, u)
		}
	}
	p.Hashtags = model.Hashtags(p.Caption)
	p.Mentions = model.Mentions(p.Caption)
	return p, nil
}

// userNode is a profile object.
type userNode struct {
	Biography         string  `json:"biography"`
	ExternalURL       string  `json:"external_url"`
	FollowedBy        count   `json:"edge_followed_by"`
	Follow            count   `json:"edge_follow"`
	FullName          string  `json:"full_name"`
	ID                flexInt `json:"id"`
	IsBusinessAccount bool    `json:"is_business_account"`
	IsJoinedRecently  bool    `json:"is_joined_recently"`
	IsPrivate         bool    `json:"is_private"`
	IsVerified        bool    `json:"is_verified"`
	ProfilePicURL     string  `json:"profile_pic_url"`
	Username          string  `json:"username"`
	ConnectedFBPage   *string `json:"connected_fb_page"`
	Media             count   `json:"edge_owner_to_timeline_media"`
}

// MapUser maps a profile object to a User.
func MapUser(node json.RawMessage) (model.User, error) {
	var n userNode
	if err := json.Unmarshal(node, &n); err != nil {
		return model.User{}, fmt.Errorf("decode user: %w", err)
	}
	if n.ID == 0 || n.Username == "" {
		return model.User{}, fmt.Errorf("user: %w: missing id or username", errMalformed)
	}

	u := model.User{
		Biography:         n.Biography,
		Website:           n.ExternalURL,
		FollowedByCount:   int64(n.FollowedBy.Count),
		FollowsCount:      int64(n.Follow.Count),
		FullName:          n.FullName,
		UserID:            int64(n.ID),
		IsBusinessAccount: n.IsBusinessAccount,
		IsJoinedRecently:  n.IsJoinedRecently,
		IsPrivate:         n.IsPrivate,
		IsVerified:        n.IsVerified,
		ProfilePicURL:     n.ProfilePicURL,
		Username:          n.Username,
		MediaCount:        int64(n.Media.Count),
	}
	if n.ConnectedFBPage != nil {
		u.ConnectedFBPage = *n.ConnectedFBPage
	}
	return u, nil
}

// commentNode is a comment as served by the comments feed.
type commentNode struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	CreatedAt flexInt `json:"created_at"`
	Owner     struct {
		ID       flexInt `json:"id"`
		Username string  `json:"username"`
	} `json:"owner"`
	LikedBy count `json:"edge_liked_by"`
}

// MapComment returns a mapper for comments on the post with shortcode.
func MapComment(shortcode string) pagination.MapFunc[model.Comment] {
	return func(node json.RawMessage) (model.Comment, error) {
		var n commentNode
		if err := json.Unmarshal(node, &n); err != nil {
			return model.Comment{}, fmt.Errorf("decode comment: %w", err)
		}
		if n.ID == "" {
			return model.Comment{}, fmt.Errorf("comment: %w: missing id", errMalformed)
		}
		return model.Comment{
			CommentID:     n.ID,
			PostShortcode: shortcode,
			OwnerID:       int64(n.Owner.ID),
			OwnerUsername: n.Owner.Username,
			Text:          n.Text,
			CreatedAt:     unixTime(n.CreatedAt),
			LikeCount:     int64(n.LikedBy.Count),
			Hashtags:      model.Hashtags(n.Text),
			Mentions:      model.Mentions(n.Text),
		}, nil
	}
}
