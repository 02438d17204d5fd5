package stream

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for stream consumption.
var (
	elementsStreamedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igstream_elements_streamed_total",
		Help: "Total records delivered to stream consumers",
	})

	earlyExitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igstream_filter_early_exits_total",
		Help: "Total sub-streams ended early by a sustained-interest filter",
	})

	duplicatesSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igstream_duplicates_suppressed_total",
		Help: "Total records dropped as structural duplicates",
	})
)

// DefaultProgressEvery is the default progress reporting interval.
const DefaultProgressEvery = 100

// ProgressFunc observes consumption progress. It is called with the number
// of records streamed so far.
type ProgressFunc func(streamed int)

// Stream is a lazily evaluated sequence of records merged from several
// sub-streams, with chainable operators.
//
// A Stream is immutable: every operator returns a new Stream and leaves its
// receiver usable. Nothing is fetched until a terminal call (All, ToList,
// ToSet, SaveCSV) is iterated. A Stream is not safe for concurrent
// iteration of the same sources if those sources are not.
type Stream[T model.Record] struct {
	mux           *Mux[T]
	stages        []Transform[T]
	err           error
	progressEvery int
	onProgress    ProgressFunc
}

// New creates a stream over sources, merged in order.
func New[T model.Record](sources ...Source[T]) *Stream[T] {
	return &Stream[T]{
		mux:           NewMux(sources...),
		progressEvery: DefaultProgressEvery,
	}
}

func (s *Stream[T]) clone() *Stream[T] {
	c := *s
	c.stages = slices.Clone(s.stages)
	return &c
}

func (s *Stream[T]) withStage(stage Transform[T]) *Stream[T] {
	c := s.clone()
	c.stages = append(c.stages, stage)
	return c
}

func (s *Stream[T]) withErr(err error) *Stream[T] {
	c := s.clone()
	if c.err == nil {
		c.err = err
	}
	return c
}

// Err returns the first input validation error recorded by an operator.
func (s *Stream[T]) Err() error {
	return s.err
}

// Sources returns the number of sub-streams.
func (s *Stream[T]) Sources() int {
	return s.mux.Len()
}

// WithProgress reports progress every n records through the logger and fn
// (which may be nil). n <= 0 disables reporting.
func (s *Stream[T]) WithProgress(n int, fn ProgressFunc) *Stream[T] {
	c := s.clone()
	c.progressEvery = n
	c.onProgress = fn
	return c
}

// Limit caps the merged stream to its first n records. It applies to the
// merged view because where the cut falls among sub-streams is unknown in
// advance; sub-streams past the cut are never fetched.
func (s *Stream[T]) Limit(n int) *Stream[T] {
	if n < 0 {
		return s.withErr(fmt.Errorf("%w: limit %d", ErrInvalidArgument, n))
	}
	return s.withStage(func(seq iter.Seq2[T, error]) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			if n == 0 {
				return
			}
			taken := 0
			for v, err := range seq {
				if !yield(v, err) || err != nil {
					return
				}
				taken++
				if taken >= n {
					return
				}
			}
		}
	})
}

// Unique drops records structurally equal to one seen earlier in the merged
// stream, keeping first occurrences in order.
//
// Every distinct record seen is kept in memory until iteration ends, so
// memory grows with the number of distinct records. Put a Limit after it,
// or use Top with unique, on long feeds.
func (s *Stream[T]) Unique() *Stream[T] {
	return s.withStage(func(seq iter.Seq2[T, error]) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			seen := make(map[string]struct{})
			for v, err := range seq {
				if err != nil {
					yield(v, err)
					return
				}
				id := model.Identity(v)
				if _, dup := seen[id]; dup {
					duplicatesSuppressedTotal.Inc()
					continue
				}
				seen[id] = struct{}{}
				if !yield(v, nil) {
					return
				}
			}
		}
	})
}

// Filter applies a sustained-interest filter (see Sustained) to every
// sub-stream independently, before merging. Ending early is only sound per
// source: one source leaving the window says nothing about the others.
func (s *Stream[T]) Filter(pred func(T) bool, maxTailSkip int) *Stream[T] {
	c := s.clone()
	c.mux = s.mux.ReplaceEach(Sustained(pred, maxTailSkip))
	return c
}

// FilterRange keeps records whose attribute attr lies within the inclusive
// bounds [gte, lte]. A nil bound is open.
func (s *Stream[T]) FilterRange(attr string, gte, lte *int64, maxTailSkip int) *Stream[T] {
	if err := checkAttr[T](attr); err != nil {
		return s.withErr(err)
	}
	return s.Filter(inRange[T](attr, gte, lte), maxTailSkip)
}

// CreatedRange keeps records created between after and before, inclusive,
// with DefaultCreatedTailSkip. Bounds are anything ParseInstant accepts; an
// empty bound is open.
//
// This filters on creation time, so an old post that was recently modified
// and resurfaced in a feed is still excluded.
func (s *Stream[T]) CreatedRange(after, before any) *Stream[T] {
	return s.CreatedRangeSkip(after, before, DefaultCreatedTailSkip)
}

// CreatedRangeSkip is CreatedRange with an explicit tail tolerance.
func (s *Stream[T]) CreatedRangeSkip(after, before any, maxTailSkip int) *Stream[T] {
	gte, err := instantBound(after)
	if err != nil {
		return s.withErr(fmt.Errorf("created range after: %w", err))
	}
	lte, err := instantBound(before)
	if err != nil {
		return s.withErr(fmt.Errorf("created range before: %w", err))
	}
	return s.FilterRange("created_at", gte, lte, maxTailSkip)
}

func instantBound(v any) (*int64, error) {
	t, err := ParseInstant(v)
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, nil
	}
	return Bound(t.UnixNano()), nil
}

// Top keeps the num records with the largest attr over the whole merged
// stream, largest first, using TopK. With unique, duplicates are dropped
// batch by batch rather than globally.
func (s *Stream[T]) Top(num int, attr string, unique bool) *Stream[T] {
	if num < 0 {
		return s.withErr(fmt.Errorf("%w: top %d", ErrInvalidArgument, num))
	}
	if err := checkAttr[T](attr); err != nil {
		return s.withErr(err)
	}
	var identity func(T) string
	if unique {
		identity = func(v T) string { return model.Identity(v) }
	}
	return s.withStage(func(seq iter.Seq2[T, error]) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			top, err := TopK(seq, num, attrKey[T](attr), true, identity)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, v := range top {
				if !yield(v, nil) {
					return
				}
			}
		}
	})
}

// All returns the terminal sequence. A pending validation error is yielded
// once without fetching anything.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if s.err != nil {
			var zero T
			yield(zero, s.err)
			return
		}

		seq := s.mux.Merged(ctx)
		for _, stage := range s.stages {
			seq = stage(seq)
		}

		logger := log.With().Str("component", "stream").Logger()
		streamed := 0
		for v, err := range seq {
			if err != nil {
				logger.Warn().Err(err).Int("streamed", streamed).Msg("Stream ended with error")
				yield(v, err)
				return
			}
			streamed++
			elementsStreamedTotal.Inc()
			if s.progressEvery > 0 && streamed%s.progressEvery == 0 {
				logger.Info().Int("streamed", streamed).Msgf("Streamed %d elements", streamed)
				if s.onProgress != nil {
					s.onProgress(streamed)
				}
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// ToList materialises the stream. With a non-empty sortAttr the result is
// sorted by that attribute, descending when reverse is set; ties keep stream
// order. Records yielded before an error are returned with it.
func (s *Stream[T]) ToList(ctx context.Context, sortAttr string, reverse bool) ([]T, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sortAttr != "" {
		if err := checkAttr[T](sortAttr); err != nil {
			return nil, err
		}
	}

	var items []T
	for v, err := range s.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, v)
	}

	if sortAttr != "" {
		key := attrKey[T](sortAttr)
		slices.SortStableFunc(items, func(a, b T) int {
			if reverse {
				return cmp.Compare(key(b), key(a))
			}
			return cmp.Compare(key(a), key(b))
		})
	}
	return items, nil
}

// ToListDesc materialises the stream sorted by sortAttr, largest first.
func (s *Stream[T]) ToListDesc(ctx context.Context, sortAttr string) ([]T, error) {
	return s.ToList(ctx, sortAttr, true)
}

// Collect materialises the stream in stream order.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	return s.ToList(ctx, "", false)
}

// ToSet materialises the stream into a set keyed by model.Identity.
func (s *Stream[T]) ToSet(ctx context.Context) (map[string]T, error) {
	if s.err != nil {
		return nil, s.err
	}
	set := make(map[string]T)
	for v, err := range s.All(ctx) {
		if err != nil {
			return set, err
		}
		set[model.Identity(v)] = v
	}
	return set, nil
}

// checkAttr verifies that T exposes attr. It cannot tell for interface
// types, whose zero value is nil; those are checked record by record.
func checkAttr[T model.Record](attr string) error {
	var zero T
	if any(zero) == nil {
		return nil
	}
	if !model.HasAttr(zero, attr) {
		return fmt.Errorf("%w: %T has no attribute %q", ErrUnknownAttribute, zero, attr)
	}
	return nil
}

func attrKey[T model.Record](attr string) func(T) int64 {
	return func(v T) int64 {
		k, _ := v.Attr(attr)
		return k
	}
}
