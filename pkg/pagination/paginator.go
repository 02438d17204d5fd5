package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igstream_pages_fetched_total",
		Help: "Total pages fetched by feed kind",
	}, []string{"kind"})

	edgesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igstream_edges_fetched_total",
		Help: "Total raw edges received by feed kind",
	}, []string{"kind"})
)

// ErrCursorStalled is yielded when a page reports a next page but its end
// cursor is empty or the cursor it was fetched with.
var ErrCursorStalled = errors.New("cursor did not advance")

// Page is one page of a cursor-paginated feed.
type Page struct {
	// HasNextPage is false on the last page.
	HasNextPage bool

	// EndCursor continues the feed after this page. Ignored when
	// HasNextPage is false.
	EndCursor string

	// Edges are the raw nodes of this page, in feed order.
	Edges []json.RawMessage
}

// FetchFunc fetches the page that follows cursor. The first page is
// requested with an empty cursor. Implementations retry internally; an
// error returned here is final for the feed.
type FetchFunc func(ctx context.Context, cursor string) (Page, error)

// Paginate returns a lazy sequence of pages. Nothing is fetched until the
// sequence is ranged over, and each page is fetched only when the consumer
// asks for it. The sequence ends after the page reporting no next page. A
// fetch error, or a next page announced without a new cursor
// (ErrCursorStalled), is yielded once and ends the sequence; pages yielded
// before it stay valid.
func Paginate(ctx context.Context, req model.FeedRequest, fetch FetchFunc) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		kind := string(req.Kind)
		logger := log.With().Str("component", "paginator").Stringer("feed", req).Logger()

		cursor := ""
		for pageNum := 1; ; pageNum++ {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}

			page, err := fetch(ctx, cursor)
			if err != nil {
				logger.Warn().
					Err(err).
					Int("page", pageNum).
					Msg("Page fetch failed")
				yield(Page{}, fmt.Errorf("fetch %s page %d: %w", req, pageNum, err))
				return
			}

			pagesFetchedTotal.WithLabelValues(kind).Inc()
			edgesFetchedTotal.WithLabelValues(kind).Add(float64(len(page.Edges)))
			logger.Debug().
				Int("page", pageNum).
				Int("edges", len(page.Edges)).
				Bool("has_next_page", page.HasNextPage).
				Msg("Fetched page")

			if !yield(page, nil) {
				return
			}
			if !page.HasNextPage {
				return
			}
			if page.EndCursor == "" || page.EndCursor == cursor {
				logger.Warn().
					Int("page", pageNum).
					Str("cursor", cursor).
					Msg("End cursor did not advance, stopping feed")
				yield(Page{}, fmt.Errorf("fetch %s page %d: %w", req, pageNum+1, ErrCursorStalled))
				return
			}
			cursor = page.EndCursor
		}
	}
}
