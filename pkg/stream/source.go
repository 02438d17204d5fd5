package stream

import (
	"context"
	"iter"
)

// Source produces one sub-stream. It is called once per iteration of the
// stream that owns it, with the context of that iteration, and must not do
// any work before the returned sequence is ranged over.
type Source[T any] func(ctx context.Context) iter.Seq2[T, error]

// Transform rewrites a lazy sequence into another lazy sequence.
type Transform[T any] func(iter.Seq2[T, error]) iter.Seq2[T, error]

// FromSlice returns a source yielding items in order.
func FromSlice[T any](items ...T) Source[T] {
	items = append([]T(nil), items...)
	return func(context.Context) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			for _, v := range items {
				if !yield(v, nil) {
					return
				}
			}
		}
	}
}

// FromSeq wraps a sequence that does not need the iteration context.
func FromSeq[T any](seq iter.Seq2[T, error]) Source[T] {
	return func(context.Context) iter.Seq2[T, error] {
		return seq
	}
}

// FromFunc returns a source that yields the single value produced by fn,
// calling fn only when the sub-stream is reached.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Source[T] {
	return func(ctx context.Context) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			yield(fn(ctx))
		}
	}
}
