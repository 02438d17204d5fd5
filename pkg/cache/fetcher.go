package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/Sternrassler/igstream/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Upstream is the web API surface wrapped by Fetcher. *client.Client
// implements it.
type Upstream interface {
	Fetch(ctx context.Context, req model.FeedRequest, cursor string) (pagination.Page, error)
	PostInfo(ctx context.Context, shortcode string) (json.RawMessage, error)
	UserInfo(ctx context.Context, username string) (json.RawMessage, error)
}

// Fetcher serves post and profile lookups from the cache and passes feed
// pages through.
type Fetcher struct {
	upstream Upstream
	manager  *Manager
	logger   zerolog.Logger
}

// NewFetcher wraps upstream.
func NewFetcher(upstream Upstream, manager *Manager) *Fetcher {
	return &Fetcher{
		upstream: upstream,
		manager:  manager,
		logger:   log.With().Str("component", "cache").Logger(),
	}
}

// Fetch is never cached.
func (f *Fetcher) Fetch(ctx context.Context, req model.FeedRequest, cursor string) (pagination.Page, error) {
	return f.upstream.Fetch(ctx, req, cursor)
}

// PostInfo returns the post detail object of shortcode.
func (f *Fetcher) PostInfo(ctx context.Context, shortcode string) (json.RawMessage, error) {
	return f.lookup(ctx, Key{Kind: KindPost, ID: shortcode}, func() (json.RawMessage, error) {
		return f.upstream.PostInfo(ctx, shortcode)
	})
}

// UserInfo returns the profile object of username.
func (f *Fetcher) UserInfo(ctx context.Context, username string) (json.RawMessage, error) {
	return f.lookup(ctx, Key{Kind: KindUser, ID: username}, func() (json.RawMessage, error) {
		return f.upstream.UserInfo(ctx, username)
	})
}

func (f *Fetcher) lookup(ctx context.Context, key Key, fetch func() (json.RawMessage, error)) (json.RawMessage, error) {
	kind := string(key.Kind)

	entry, err := f.manager.Get(ctx, key)
	switch {
	case err == nil:
		cacheHits.WithLabelValues(kind).Inc()
		f.logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Cache hit")
		return entry.Data, nil
	case errors.Is(err, ErrCacheMiss):
		cacheMisses.WithLabelValues(kind).Inc()
	default:
		cacheMisses.WithLabelValues(kind).Inc()
		f.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache read failed, fetching from API")
	}

	data, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := f.manager.Set(ctx, key, data); err != nil {
		f.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache write failed")
	}
	return data, nil
}
