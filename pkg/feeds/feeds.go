// Package feeds wires the web API client, the paginator and the stream
// layer together. It is the entry point for streaming tag, location and user
// feeds, comment threads, and post and profile lookups.
//
// Example usage:
//
//	api, _ := client.New(client.DefaultConfig("my-app/1.0"))
//	f := feeds.New(api)
//
//	posts, err := f.Tag("x", "y").
//		CreatedRange("2024-01-01", nil).
//		Limit(5).
//		Collect(ctx)
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/Sternrassler/igstream/pkg/client"
	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/Sternrassler/igstream/pkg/pagination"
	"github.com/Sternrassler/igstream/pkg/stream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a referenced user or post does not exist, or
// a user has no posts to resolve an id through.
var ErrNotFound = client.ErrNotFound

// Fetcher is the web API surface used by Feeds. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req model.FeedRequest, cursor string) (pagination.Page, error)
	PostInfo(ctx context.Context, shortcode string) (json.RawMessage, error)
	UserInfo(ctx context.Context, username string) (json.RawMessage, error)
}

// Feeds creates record streams over one Fetcher. It is safe to share;
// streams created from it are independent.
type Feeds struct {
	fetcher       Fetcher
	pageSize      int
	progressEvery int
	skipped       *pagination.SkipCounter
	logger        zerolog.Logger
}

// Option configures Feeds.
type Option func(*Feeds)

// WithPageSize sets the number of edges requested per page.
func WithPageSize(n int) Option {
	return func(f *Feeds) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithProgressEvery sets the progress interval of created streams; 0
// disables progress lines.
func WithProgressEvery(n int) Option {
	return func(f *Feeds) {
		if n >= 0 {
			f.progressEvery = n
		}
	}
}

// New creates a Feeds over fetcher.
func New(fetcher Fetcher, opts ...Option) *Feeds {
	f := &Feeds{
		fetcher:       fetcher,
		pageSize:      model.DefaultPageSize,
		progressEvery: stream.DefaultProgressEvery,
		skipped:       &pagination.SkipCounter{},
		logger:        log.With().Str("component", "feeds").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Skipped returns the number of malformed nodes skipped so far by every
// stream created from f.
func (f *Feeds) Skipped() int64 {
	return f.skipped.Count()
}

func (f *Feeds) request(kind model.FeedKind, id string) model.FeedRequest {
	return model.FeedRequest{Kind: kind, ID: id, PageSize: f.pageSize}
}

func newStream[T model.Record](f *Feeds, sources []stream.Source[T]) *stream.Stream[T] {
	return stream.New(sources...).WithProgress(f.progressEvery, nil)
}

// feedSource is a lazily paginated feed.
func feedSource[T any](f *Feeds, req model.FeedRequest, mapNode pagination.MapFunc[T]) stream.Source[T] {
	return func(ctx context.Context) iter.Seq2[T, error] {
		pages := pagination.Paginate(ctx, req, func(ctx context.Context, cursor string) (pagination.Page, error) {
			return f.fetcher.Fetch(ctx, req, cursor)
		})
		return pagination.Flatten(req, pages, mapNode, f.skipped)
	}
}

// Tag streams the posts of each hashtag, one tag after the other.
func (f *Feeds) Tag(tags ...string) *stream.Stream[model.PostThumb] {
	sources := make([]stream.Source[model.PostThumb], 0, len(tags))
	for _, tag := range tags {
		tag = trimTag(tag)
		sources = append(sources, feedSource(f, f.request(model.FeedTag, tag), MapThumb))
	}
	return newStream(f, sources)
}

// Location streams the posts of each location.
func (f *Feeds) Location(ids ...int64) *stream.Stream[model.PostThumb] {
	sources := make([]stream.Source[model.PostThumb], 0, len(ids))
	for _, id := range ids {
		req := f.request(model.FeedLocation, strconv.FormatInt(id, 10))
		sources = append(sources, feedSource(f, req, MapThumb))
	}
	return newStream(f, sources)
}

// User streams the timeline of each user. References other than an id are
// resolved to one when their sub-stream is reached; a username costs one
// extra request.
func (f *Feeds) User(refs ...model.UserRef) *stream.Stream[model.PostThumb] {
	sources := make([]stream.Source[model.PostThumb], 0, len(refs))
	for _, ref := range refs {
		sources = append(sources, func(ctx context.Context) iter.Seq2[model.PostThumb, error] {
			return func(yield func(model.PostThumb, error) bool) {
				id, err := f.userID(ctx, ref)
				if err != nil {
					yield(model.PostThumb{}, fmt.Errorf("resolve %s: %w", ref, err))
					return
				}
				req := f.request(model.FeedUser, strconv.FormatInt(id, 10))
				for v, err := range feedSource(f, req, MapThumb)(ctx) {
					if !yield(v, err) {
						return
					}
				}
			}
		})
	}
	return newStream(f, sources)
}

// Comments streams the comments of each post.
func (f *Feeds) Comments(shortcodes ...string) *stream.Stream[model.Comment] {
	sources := make([]stream.Source[model.Comment], 0, len(shortcodes))
	for _, sc := range shortcodes {
		sources = append(sources, feedSource(f, f.request(model.FeedComments, sc), MapComment(sc)))
	}
	return newStream(f, sources)
}

// Users streams one profile per reference, looked up when reached.
func (f *Feeds) Users(refs ...model.UserRef) *stream.Stream[model.User] {
	sources := make([]stream.Source[model.User], 0, len(refs))
	for _, ref := range refs {
		sources = append(sources, stream.FromFunc(func(ctx context.Context) (model.User, error) {
			return f.UserInfo(ctx, ref)
		}))
	}
	return newStream(f, sources)
}

// Posts streams one post per reference, looked up when reached.
func (f *Feeds) Posts(refs ...model.PostRef) *stream.Stream[model.Post] {
	sources := make([]stream.Source[model.Post], 0, len(refs))
	for _, ref := range refs {
		sources = append(sources, stream.FromFunc(func(ctx context.Context) (model.Post, error) {
			return f.PostInfo(ctx, ref)
		}))
	}
	return newStream(f, sources)
}

func trimTag(tag string) string {
	return strings.TrimLeft(strings.TrimSpace(tag), "#")
}
