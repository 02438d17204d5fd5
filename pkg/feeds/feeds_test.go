package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/igstream/internal/testutil"
	"github.com/Sternrassler/igstream/pkg/client"
	"github.com/Sternrassler/igstream/pkg/model"
)

func newTestFeeds(t *testing.T, mock *testutil.MockAPI, opts ...Option) *Feeds {
	t.Helper()
	cfg := client.DefaultConfig("igstream-test/1.0")
	cfg.BaseURL = mock.URL()
	cfg.Retry = func(client.ErrorClass) client.RetryConfig {
		return client.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	}
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	opts = append([]Option{WithProgressEvery(0)}, opts...)
	return New(c, opts...)
}

// thumbPages builds pages of feed nodes with shortcodes prefix-0, prefix-1 and
// so on, newest first.
func thumbPages(prefix string, ownerID int64, perPage, pages int) [][]string {
	out := make([][]string, pages)
	n := 0
	for p := range out {
		for i := 0; i < perPage; i++ {
			sc := fmt.Sprintf("%s-%d", prefix, n)
			out[p] = append(out[p], testutil.ThumbNode(sc, sc, ownerID, 1700000000-int64(n)*3600, ""))
			n++
		}
	}
	return out
}

func TestTag_LimitNeverReachesSecondTag(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetFeed(model.FeedTag, "x", thumbPages("x", 1, 3, 4)...)
	mock.SetFeed(model.FeedTag, "y", thumbPages("y", 2, 3, 4)...)

	posts, err := newTestFeeds(t, mock).Tag("x", "y").Limit(5).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(posts) != 5 {
		t.Fatalf("len(posts) = %d, want 5", len(posts))
	}
	for i, p := range posts {
		if want := fmt.Sprintf("x-%d", i); p.Shortcode != want {
			t.Errorf("posts[%d].Shortcode = %v, want %v", i, p.Shortcode, want)
		}
	}
	if n := mock.FeedRequests(model.FeedTag, "x"); n != 2 {
		t.Errorf("tag x requests = %d, want 2", n)
	}
	if n := mock.FeedRequests(model.FeedTag, "y"); n != 0 {
		t.Errorf("tag y requests = %d, want 0", n)
	}
}

func TestTag_ConcatenatesInOrder(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetFeed(model.FeedTag, "x", thumbPages("x", 1, 2, 1)...)
	mock.SetFeed(model.FeedTag, "y", thumbPages("y", 2, 2, 2)...)

	posts, err := newTestFeeds(t, mock).Tag("#x", "y").Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := []string{"x-0", "x-1", "y-0", "y-1", "y-2", "y-3"}
	if len(posts) != len(want) {
		t.Fatalf("len(posts) = %d, want %d", len(posts), len(want))
	}
	for i := range want {
		if posts[i].Shortcode != want[i] {
			t.Errorf("posts[%d].Shortcode = %v, want %v", i, posts[i].Shortcode, want[i])
		}
	}
}

func TestTag_CreatedRangeStopsEarly(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	// Posts one hour apart, newest first.
	mock.SetFeed(model.FeedTag, "x", thumbPages("x", 1, 5, 20)...)

	before := time.Unix(1700000000-3*3600, 0).UTC()
	after := time.Unix(1700000000-6*3600, 0).UTC()

	posts, err := newTestFeeds(t, mock).Tag("x").
		CreatedRangeSkip(after, before, 3).
		Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(posts) != 4 {
		t.Fatalf("len(posts) = %d, want 4", len(posts))
	}
	if posts[0].Shortcode != "x-3" || posts[3].Shortcode != "x-6" {
		t.Errorf("range = %v..%v, want x-3..x-6", posts[0].Shortcode, posts[3].Shortcode)
	}
	if n := mock.FeedRequests(model.FeedTag, "x"); n >= 20 {
		t.Errorf("tag x requests = %d, want early exit before the last page", n)
	}
}

func TestTag_SkipsMalformedNodes(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetFeed(model.FeedTag, "x", []string{
		testutil.ThumbNode("1", "a", 1, 1700000000, ""),
		`{"id":"2"}`,
		testutil.ThumbNode("3", "c", 1, 1700000000, ""),
	})

	f := newTestFeeds(t, mock)
	posts, err := f.Tag("x").Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(posts) != 2 {
		t.Errorf("len(posts) = %d, want 2", len(posts))
	}
	if f.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", f.Skipped())
	}
}

func TestTag_ErrorEndsStream(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetFeed(model.FeedTag, "y", thumbPages("y", 2, 2, 1)...)

	_, err := newTestFeeds(t, mock).Tag("missing", "y").Collect(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Collect() error = %v, want ErrNotFound", err)
	}
	if n := mock.FeedRequests(model.FeedTag, "y"); n != 0 {
		t.Errorf("tag y requests = %d, want 0", n)
	}
}

func TestTag_PageSize(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	var first string
	mock.SetHandler("/graphql/query/", func(w http.ResponseWriter, r *http.Request) {
		first = r.URL.Query().Get("variables")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"hashtag":{"edge_hashtag_to_media":{"page_info":{"has_next_page":false,"end_cursor":""},"edges":[]}}}}`))
	})

	if _, err := newTestFeeds(t, mock, WithPageSize(12)).Tag("x").Collect(context.Background()); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !strings.Contains(first, `"first":12`) {
		t.Errorf("variables = %s, want first=12", first)
	}
}

func TestLocation(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetFeed(model.FeedLocation, "213385402", thumbPages("l", 3, 2, 2)...)

	posts, err := newTestFeeds(t, mock).Location(213385402).Limit(3).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(posts) != 3 {
		t.Errorf("len(posts) = %d, want 3", len(posts))
	}
}

func TestUser_ByName(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetUser("alice", testutil.UserProfile(7, "alice"))
	mock.SetFeed(model.FeedUser, "7", thumbPages("u", 7, 2, 2)...)

	posts, err := newTestFeeds(t, mock).User(model.UserByName("@alice")).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(posts) != 4 {
		t.Fatalf("len(posts) = %d, want 4", len(posts))
	}
	for _, p := range posts {
		if p.OwnerID != 7 {
			t.Errorf("OwnerID = %v, want 7", p.OwnerID)
		}
	}
}

func TestUser_ResolvesLazily(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetFeed(model.FeedUser, "7", thumbPages("a", 7, 2, 1)...)

	f := newTestFeeds(t, mock)
	s := f.User(model.UserByID(7), model.UserByName("nobody"))
	if n := mock.GetRequestCount(); n != 0 {
		t.Fatalf("requests before iteration = %d, want 0", n)
	}

	posts, err := s.Limit(2).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("len(posts) = %d, want 2", len(posts))
	}
	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestUserInfo(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetUser("alice", testutil.UserProfile(7, "alice"))
	mock.SetFeed(model.FeedUser, "7", thumbPages("p", 7, 2, 1)...)
	mock.SetPost("p-0", testutil.PostMedia("900", "p-0", 7, "alice", 1700000000, ""))
	mock.SetFeed(model.FeedUser, "8")

	f := newTestFeeds(t, mock)
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     model.UserRef
		wantErr error
	}{
		{"by name", model.UserByName("alice"), nil},
		{"by id", model.UserByID(7), nil},
		{"by record", model.UserRecord(model.User{UserID: 7, Username: "alice"}), nil},
		{"owner of post", model.UserOfPost(model.Post{OwnerID: 7, OwnerUsername: "alice"}), nil},
		{"owner of post without name", model.UserOfPost(model.Post{OwnerID: 7}), nil},
		{"owner of thumb", model.UserOfThumb(model.PostThumb{OwnerID: 7}), nil},
		{"unknown name", model.UserByName("nobody"), ErrNotFound},
		{"id without posts", model.UserByID(8), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := f.UserInfo(ctx, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UserInfo() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UserInfo() error = %v", err)
			}
			if u.UserID != 7 || u.Username != "alice" {
				t.Errorf("UserInfo() = %v/%v, want 7/alice", u.UserID, u.Username)
			}
		})
	}
}

func TestPostInfo(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPost("abc", testutil.PostMedia("900", "abc", 7, "alice", 1700000000, "#hello"))

	f := newTestFeeds(t, mock)
	ctx := context.Background()

	p, err := f.PostInfo(ctx, model.PostByShortcode("abc"))
	if err != nil {
		t.Fatalf("PostInfo() error = %v", err)
	}
	if p.PostID != 900 || p.OwnerUsername != "alice" {
		t.Errorf("PostInfo() = %v/%v, want 900/alice", p.PostID, p.OwnerUsername)
	}

	p, err = f.PostInfo(ctx, model.PostOfThumb(model.PostThumb{Shortcode: "abc"}))
	if err != nil || p.Shortcode != "abc" {
		t.Errorf("PostInfo(thumb) = %v, %v, want abc", p.Shortcode, err)
	}

	before := mock.GetRequestCount()
	if _, err := f.PostInfo(ctx, model.PostRecord(p)); err != nil {
		t.Errorf("PostInfo(record) error = %v", err)
	}
	if mock.GetRequestCount() != before {
		t.Error("PostInfo(record) sent a request")
	}

	if _, err := f.PostInfo(ctx, model.PostByShortcode("gone")); !errors.Is(err, ErrNotFound) {
		t.Errorf("PostInfo(gone) error = %v, want ErrNotFound", err)
	}
}

func TestComments(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetFeed(model.FeedComments, "abc",
		[]string{testutil.CommentNode("c1", 9, "bob", "first", 1700000100)},
		[]string{testutil.CommentNode("c2", 10, "carol", "second", 1700000200)},
	)

	comments, err := newTestFeeds(t, mock).Comments("abc").Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(comments) != 2 {
		t.Fatalf("len(comments) = %d, want 2", len(comments))
	}
	for _, c := range comments {
		if c.PostShortcode != "abc" {
			t.Errorf("PostShortcode = %v, want abc", c.PostShortcode)
		}
	}
	if comments[1].OwnerUsername != "carol" {
		t.Errorf("comments[1].OwnerUsername = %v, want carol", comments[1].OwnerUsername)
	}
}

func TestUsersAndPosts(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetUser("alice", testutil.UserProfile(7, "alice"))
	mock.SetUser("bob", testutil.UserProfile(8, "bob"))
	mock.SetPost("a", testutil.PostMedia("1", "a", 7, "alice", 1700000000, ""))
	mock.SetPost("b", testutil.PostMedia("2", "b", 8, "bob", 1700000100, ""))

	f := newTestFeeds(t, mock)
	ctx := context.Background()

	users, err := f.Users(model.UserByName("alice"), model.UserByName("bob")).Limit(1).Collect(ctx)
	if err != nil {
		t.Fatalf("Users().Collect() error = %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("Users() = %v, want [alice]", users)
	}

	posts, err := f.Posts(model.PostByShortcode("a"), model.PostByShortcode("b")).
		ToListDesc(ctx, "created_at")
	if err != nil {
		t.Fatalf("Posts().ToListDesc() error = %v", err)
	}
	if len(posts) != 2 || posts[0].Shortcode != "b" {
		t.Errorf("Posts() newest first = %v, want b first", posts)
	}
}

func TestParseLocationIDs(t *testing.T) {
	ids, err := ParseLocationIDs([]string{"1", "213385402"})
	if err != nil {
		t.Fatalf("ParseLocationIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[1] != 213385402 {
		t.Errorf("ParseLocationIDs() = %v", ids)
	}

	if _, err := ParseLocationIDs([]string{"lisbon"}); err == nil {
		t.Error("ParseLocationIDs(lisbon) error = nil, want error")
	}
}

func TestParseUserRefs(t *testing.T) {
	refs, err := ParseUserRefs([]string{"7", "@alice"})
	if err != nil {
		t.Fatalf("ParseUserRefs() error = %v", err)
	}
	if refs[0].Kind() != model.UserRefID || refs[1].Kind() != model.UserRefName || refs[1].Name() != "alice" {
		t.Errorf("ParseUserRefs() = %v", refs)
	}
}
