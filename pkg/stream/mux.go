package stream

import (
	"context"
	"iter"
)

// Mux holds an ordered, fixed set of independent sub-streams.
//
// Operators that are only sound per source (early-exit filters) are pushed
// down with ReplaceEach; everything else works on the Merged view.
type Mux[T any] struct {
	sources []Source[T]
}

// NewMux creates a multiplexer over sources, in order.
func NewMux[T any](sources ...Source[T]) *Mux[T] {
	return &Mux[T]{sources: append([]Source[T](nil), sources...)}
}

// Len returns the number of sub-streams.
func (m *Mux[T]) Len() int {
	return len(m.sources)
}

// Merged concatenates the sub-streams. Each one is drained completely,
// including all of its fetches, before the next one is started; a
// sub-stream that is never reached never runs. The first error ends the
// merged sequence.
func (m *Mux[T]) Merged(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, src := range m.sources {
			for v, err := range src(ctx) {
				if !yield(v, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
}

// ReplaceEach returns a multiplexer whose sub-streams are those of m, each
// wrapped by transform. The receiver is left unchanged.
func (m *Mux[T]) ReplaceEach(transform Transform[T]) *Mux[T] {
	sources := make([]Source[T], len(m.sources))
	for i, src := range m.sources {
		sources[i] = func(ctx context.Context) iter.Seq2[T, error] {
			return transform(src(ctx))
		}
	}
	return &Mux[T]{sources: sources}
}
