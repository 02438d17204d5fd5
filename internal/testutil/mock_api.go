// Package testutil provides testing utilities for the igstream web API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/igstream/pkg/model"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock web API server for testing.
//
// Feeds registered with SetFeed are served from /graphql/query/ with integer
// cursors; post and profile details from /p/{shortcode}/ and /{username}/.
// Responses queued with FailNext are served before anything else.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	feeds    map[string][][]string
	posts    map[string]string
	users    map[string]string
	failures []MockResponse

	// Tracking
	requestCount      int
	feedRequests      map[string]int
	lastRequestHeader http.Header
}

// NewMockAPI creates a new mock web API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		feeds:        make(map[string][][]string),
		posts:        make(map[string]string),
		users:        make(map[string]string),
		feedRequests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastRequestHeader = r.Header.Clone()
		var failure *MockResponse
		if len(mock.failures) > 0 {
			failure = &mock.failures[0]
			mock.failures = mock.failures[1:]
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if failure != nil {
			writeResponse(w, *failure)
			return
		}
		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.feedRequests = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// FailNext queues responses served to the next requests, whatever their path.
func (m *MockAPI) FailNext(resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, resps...)
}

// SetFeed registers the pages of a feed. Each page is a list of node JSON
// objects.
func (m *MockAPI) SetFeed(kind model.FeedKind, id string, pages ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[feedKey(kind, id)] = pages
}

// SetPost registers the detail object of a post.
func (m *MockAPI) SetPost(shortcode, media string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[shortcode] = media
}

// SetUser registers the profile object of a user.
func (m *MockAPI) SetUser(username, user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username] = user
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// FeedRequests returns the number of page requests made for a feed.
func (m *MockAPI) FeedRequests(kind model.FeedKind, id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.feedRequests[feedKey(kind, id)]
}

// GetLastRequestHeader returns the headers of the last request.
func (m *MockAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

func feedKey(kind model.FeedKind, id string) string {
	return string(kind) + ":" + id
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// defaultHandler serves registered feeds, posts and users.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/graphql/query/":
		m.serveFeed(w, r)
	case strings.HasPrefix(path, "/p/"):
		shortcode := strings.Trim(strings.TrimPrefix(path, "/p/"), "/")
		m.mu.RLock()
		media, ok := m.posts[shortcode]
		m.mu.RUnlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, fmt.Sprintf(`{"graphql":{"shortcode_media":%s}}`, media))
	default:
		username := strings.Trim(path, "/")
		m.mu.RLock()
		user, ok := m.users[username]
		m.mu.RUnlock()
		if !ok || strings.Contains(username, "/") {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, fmt.Sprintf(`{"graphql":{"user":%s}}`, user))
	}
}

// envelopes wrap a connection in the response shape of each feed kind.
var envelopes = map[model.FeedKind]string{
	model.FeedTag:      `{"data":{"hashtag":{"name":%q,"edge_hashtag_to_media":%s}}}`,
	model.FeedLocation: `{"data":{"location":{"id":%q,"edge_location_to_media":%s}}}`,
	model.FeedUser:     `{"data":{"user":{"id":%q,"edge_owner_to_timeline_media":%s}}}`,
	model.FeedComments: `{"data":{"shortcode_media":{"shortcode":%q,"edge_media_to_comment":%s}}}`,
}

var nullEnvelopes = map[model.FeedKind]string{
	model.FeedTag:      `{"data":{"hashtag":null}}`,
	model.FeedLocation: `{"data":{"location":null}}`,
	model.FeedUser:     `{"data":{"user":null}}`,
	model.FeedComments: `{"data":{"shortcode_media":null}}`,
}

func (m *MockAPI) serveFeed(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.KindForQueryHash(r.URL.Query().Get("query_hash"))
	if !ok {
		http.Error(w, `{"message":"invalid query_hash"}`, http.StatusBadRequest)
		return
	}

	var vars struct {
		TagName   string `json:"tag_name"`
		ID        string `json:"id"`
		Shortcode string `json:"shortcode"`
		First     int    `json:"first"`
		After     string `json:"after"`
	}
	if err := json.Unmarshal([]byte(r.URL.Query().Get("variables")), &vars); err != nil {
		http.Error(w, `{"message":"invalid variables"}`, http.StatusBadRequest)
		return
	}
	id := vars.ID
	switch kind {
	case model.FeedTag:
		id = vars.TagName
	case model.FeedComments:
		id = vars.Shortcode
	}

	key := feedKey(kind, id)
	m.mu.Lock()
	m.feedRequests[key]++
	pages, exists := m.feeds[key]
	m.mu.Unlock()

	if !exists {
		writeJSON(w, nullEnvelopes[kind])
		return
	}

	idx := 0
	if vars.After != "" {
		n, err := strconv.Atoi(vars.After)
		if err != nil || n < 0 || n >= len(pages) {
			http.Error(w, `{"message":"invalid cursor"}`, http.StatusBadRequest)
			return
		}
		idx = n
	}

	var nodes []string
	if idx < len(pages) {
		nodes = pages[idx]
	}
	edges := make([]string, len(nodes))
	for i, n := range nodes {
		edges[i] = `{"node":` + n + `}`
	}
	hasNext := idx+1 < len(pages)
	cursor := ""
	if hasNext {
		cursor = strconv.Itoa(idx + 1)
	}
	conn := fmt.Sprintf(`{"count":%d,"page_info":{"has_next_page":%t,"end_cursor":%q},"edges":[%s]}`,
		len(nodes), hasNext, cursor, strings.Join(edges, ","))

	writeJSON(w, fmt.Sprintf(envelopes[kind], id, conn))
}
