package stream

import (
	"iter"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/rs/zerolog/log"
)

// DefaultCreatedTailSkip is the tail tolerance used by CreatedRange.
const DefaultCreatedTailSkip = 50

// Sustained returns a sustained-interest filter.
//
// Leading elements failing pred are dropped without limit, which fits feeds
// served newest first: everything before the wanted window is discarded.
// Once an element matches, matches are passed through, and after maxTailSkip
// consecutive failures the sequence ends even if later elements would match,
// because the feed has moved past the window. maxTailSkip <= 0 gives a plain
// filter that never ends early.
func Sustained[T any](pred func(T) bool, maxTailSkip int) Transform[T] {
	return func(seq iter.Seq2[T, error]) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			started := false
			misses := 0
			for v, err := range seq {
				if err != nil {
					yield(v, err)
					return
				}
				if pred(v) {
					started = true
					misses = 0
					if !yield(v, nil) {
						return
					}
					continue
				}
				if !started || maxTailSkip <= 0 {
					continue
				}
				misses++
				if misses >= maxTailSkip {
					earlyExitsTotal.Inc()
					log.Debug().
						Str("component", "stream").
						Int("max_tail_skip", maxTailSkip).
						Msg("Sub-stream left the filter window, stopping early")
					return
				}
			}
		}
	}
}

// Bound returns a pointer to v, for FilterRange bounds.
func Bound(v int64) *int64 {
	return &v
}

// inRange reports whether attr of e lies within the inclusive bounds. A nil
// bound is open. Records without the attribute never match.
func inRange[T model.Record](attr string, gte, lte *int64) func(T) bool {
	return func(e T) bool {
		v, ok := e.Attr(attr)
		if !ok {
			return false
		}
		if gte != nil && v < *gte {
			return false
		}
		if lte != nil && v > *lte {
			return false
		}
		return true
	}
}
