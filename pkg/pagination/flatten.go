package pagination

import (
	"encoding/json"
	"iter"
	"sync/atomic"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var nodesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "igstream_nodes_skipped_total",
	Help: "Total raw nodes skipped because they could not be mapped to a record",
}, []string{"kind"})

// MapFunc maps one raw edge to a record.
type MapFunc[T any] func(node json.RawMessage) (T, error)

// SkipCounter counts nodes skipped by Flatten. The zero value is ready to use
// and may be shared by several feeds.
type SkipCounter struct {
	n atomic.Int64
}

// Add records n skipped nodes.
func (c *SkipCounter) Add(n int64) {
	if c != nil {
		c.n.Add(n)
	}
}

// Count returns the number of skipped nodes so far.
func (c *SkipCounter) Count() int64 {
	if c == nil {
		return 0
	}
	return c.n.Load()
}

// Flatten turns a sequence of pages into a sequence of records, one per edge,
// in page then edge order.
//
// A node that fails to map is skipped: it is counted on skipped (which may be
// nil), logged and the feed continues. Errors from the page sequence are
// passed through and end the sequence.
func Flatten[T any](req model.FeedRequest, pages iter.Seq2[Page, error], mapNode MapFunc[T], skipped *SkipCounter) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		kind := string(req.Kind)

		for page, err := range pages {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			for i, node := range page.Edges {
				rec, err := mapNode(node)
				if err != nil {
					skipped.Add(1)
					nodesSkippedTotal.WithLabelValues(kind).Inc()
					log.Warn().
						Err(err).
						Str("component", "flattener").
						Stringer("feed", req).
						Int("edge", i).
						Msg("Skipping malformed node")
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}
