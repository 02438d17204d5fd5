package testutil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Please wait a few minutes before you try again.","status":"fail"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error","status":"fail"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewForbiddenResponse creates a 403 Forbidden response.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"login required","status":"fail"}`,
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func captionEdges(caption string) map[string]any {
	if caption == "" {
		return map[string]any{"edges": []any{}}
	}
	return map[string]any{"edges": []any{
		map[string]any{"node": map[string]any{"text": caption}},
	}}
}

// ThumbNode returns a feed node as served by the tag, location and user
// feeds.
func ThumbNode(id, shortcode string, ownerID, takenAt int64, caption string) string {
	return mustJSON(map[string]any{
		"id":                      id,
		"shortcode":               shortcode,
		"owner":                   map[string]any{"id": strconv.FormatInt(ownerID, 10)},
		"edge_media_to_caption":   captionEdges(caption),
		"edge_media_to_comment":   map[string]any{"count": 2},
		"edge_media_preview_like": map[string]any{"count": 10},
		"taken_at_timestamp":      takenAt,
		"dimensions":              map[string]any{"height": 1080, "width": 1350},
		"display_url":             "https://cdn.example.com/" + shortcode + ".jpg",
		"is_video":                false,
	})
}

// PostMedia returns a post detail object.
func PostMedia(id, shortcode string, ownerID int64, ownerUsername string, takenAt int64, caption string) string {
	return mustJSON(map[string]any{
		"id":                           id,
		"shortcode":                    shortcode,
		"dimensions":                   map[string]any{"height": 1080, "width": 1080},
		"display_url":                  "https://cdn.example.com/" + shortcode + ".jpg",
		"is_video":                     false,
		"caption_is_edited":            false,
		"taken_at_timestamp":           takenAt,
		"edge_media_preview_like":      map[string]any{"count": 42},
		"edge_media_to_parent_comment": map[string]any{"count": 7},
		"location": map[string]any{
			"id":           "213385402",
			"name":         "Lisbon, Portugal",
			"address_json": `{"city_name":"Lisbon"}`,
		},
		"owner": map[string]any{
			"id":        strconv.FormatInt(ownerID, 10),
			"username":  ownerUsername,
			"full_name": "Test " + ownerUsername,
		},
		"is_ad":                 false,
		"edge_media_to_caption": captionEdges(caption),
		"edge_media_to_tagged_user": map[string]any{"edges": []any{
			map[string]any{"node": map[string]any{"user": map[string]any{"username": "friend"}}},
		}},
	})
}

// UserProfile returns a profile object.
func UserProfile(id int64, username string) string {
	return mustJSON(map[string]any{
		"biography":                    "bio of " + username,
		"external_url":                 "https://" + username + ".example.com",
		"edge_followed_by":             map[string]any{"count": 1500},
		"edge_follow":                  map[string]any{"count": 300},
		"full_name":                    "Test " + username,
		"id":                           strconv.FormatInt(id, 10),
		"is_business_account":          false,
		"is_joined_recently":           false,
		"is_private":                   false,
		"is_verified":                  true,
		"profile_pic_url":              "https://cdn.example.com/" + username + ".jpg",
		"username":                     username,
		"connected_fb_page":            nil,
		"edge_owner_to_timeline_media": map[string]any{"count": 12},
	})
}

// CommentNode returns a comment node as served by the comments feed.
func CommentNode(id string, ownerID int64, ownerUsername, text string, createdAt int64) string {
	return mustJSON(map[string]any{
		"id":         id,
		"text":       text,
		"created_at": createdAt,
		"owner": map[string]any{
			"id":       strconv.FormatInt(ownerID, 10),
			"username": ownerUsername,
		},
		"edge_liked_by": map[string]any{"count": 1},
	})
}
