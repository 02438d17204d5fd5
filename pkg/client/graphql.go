package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/Sternrassler/igstream/pkg/pagination"
)

// connection is a paginated GraphQL edge list.
type connection struct {
	Count    int64 `json:"count"`
	PageInfo struct {
		HasNextPage bool   `json:"has_next_page"`
		EndCursor   string `json:"end_cursor"`
	} `json:"page_info"`
	Edges []struct {
		Node json.RawMessage `json:"node"`
	} `json:"edges"`
}

func (c *connection) page() pagination.Page {
	edges := make([]json.RawMessage, 0, len(c.Edges))
	for _, e := range c.Edges {
		edges = append(edges, e.Node)
	}
	return pagination.Page{
		HasNextPage: c.PageInfo.HasNextPage,
		EndCursor:   c.PageInfo.EndCursor,
		Edges:       edges,
	}
}

// Response bodies per feed kind. A null entity means it does not exist.

type tagResponse struct {
	Data struct {
		Hashtag *struct {
			Media *connection `json:"edge_hashtag_to_media"`
		} `json:"hashtag"`
	} `json:"data"`
}

type locationResponse struct {
	Data struct {
		Location *struct {
			Media *connection `json:"edge_location_to_media"`
		} `json:"location"`
	} `json:"data"`
}

type userResponse struct {
	Data struct {
		User *struct {
			Media *connection `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
}

type commentsResponse struct {
	Data struct {
		ShortcodeMedia *struct {
			Comments *connection `json:"edge_media_to_comment"`
		} `json:"shortcode_media"`
	} `json:"data"`
}

// queryVariables builds the GraphQL variables for one page of req.
func queryVariables(req model.FeedRequest, cursor string) (string, error) {
	vars := map[string]any{"first": req.PageSize}
	if cursor != "" {
		vars["after"] = cursor
	}

	switch req.Kind {
	case model.FeedTag:
		vars["tag_name"] = req.ID
	case model.FeedLocation, model.FeedUser:
		if _, err := strconv.ParseInt(req.ID, 10, 64); err != nil {
			return "", fmt.Errorf("%s id %q is not numeric", req.Kind, req.ID)
		}
		vars["id"] = req.ID
	case model.FeedComments:
		vars["shortcode"] = req.ID
	default:
		return "", fmt.Errorf("unsupported feed kind %q", req.Kind)
	}

	b, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("marshal variables: %w", err)
	}
	return string(b), nil
}

// decodePage extracts the page of req's kind from a GraphQL response body.
func decodePage(kind model.FeedKind, body []byte) (pagination.Page, error) {
	var conn *connection
	found := false

	switch kind {
	case model.FeedTag:
		var r tagResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return pagination.Page{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		if r.Data.Hashtag != nil {
			found, conn = true, r.Data.Hashtag.Media
		}
	case model.FeedLocation:
		var r locationResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return pagination.Page{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		if r.Data.Location != nil {
			found, conn = true, r.Data.Location.Media
		}
	case model.FeedUser:
		var r userResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return pagination.Page{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		if r.Data.User != nil {
			found, conn = true, r.Data.User.Media
		}
	case model.FeedComments:
		var r commentsResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return pagination.Page{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		if r.Data.ShortcodeMedia != nil {
			found, conn = true, r.Data.ShortcodeMedia.Comments
		}
	default:
		return pagination.Page{}, fmt.Errorf("unsupported feed kind %q", kind)
	}

	if !found {
		return pagination.Page{}, ErrNotFound
	}
	if conn == nil {
		return pagination.Page{}, fmt.Errorf("%w: %s response has no edge list", ErrUnexpectedResponse, kind)
	}
	return conn.page(), nil
}

// infoResponse is the body of the post and profile detail endpoints.
type infoResponse struct {
	GraphQL struct {
		ShortcodeMedia json.RawMessage `json:"shortcode_media"`
		User           json.RawMessage `json:"user"`
	} `json:"graphql"`
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
