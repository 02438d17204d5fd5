package stream

import (
	"cmp"
	"iter"
	"slices"
)

// TopK returns the k elements of seq with the largest key (smallest when
// reverse is false), ordered best first.
//
// The input is consumed in batches of k. Each batch is appended to the
// retained result, the result is sorted and cut back to k, so at most 2k
// elements are resident whatever the length of seq. The answer is exact.
//
// When identity is non-nil, elements of a batch whose identity is already in
// that batch or in the retained result are dropped before insertion. No
// global seen-set is kept.
//
// On error the partial selection is discarded and the error returned.
func TopK[T any](seq iter.Seq2[T, error], k int, key func(T) int64, reverse bool, identity func(T) string) ([]T, error) {
	if k <= 0 {
		return nil, nil
	}

	compare := func(a, b T) int {
		if reverse {
			return cmp.Compare(key(b), key(a))
		}
		return cmp.Compare(key(a), key(b))
	}

	results := make([]T, 0, 2*k)
	batch := make([]T, 0, k)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if identity != nil {
			batch = dedupAgainst(batch, results, identity)
		}
		results = append(results, batch...)
		slices.SortStableFunc(results, compare)
		if len(results) > k {
			clear(results[k:])
			results = results[:k]
		}
		batch = batch[:0]
	}

	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		batch = append(batch, v)
		if len(batch) == k {
			flush()
		}
	}
	flush()

	return results, nil
}

// dedupAgainst drops elements of batch repeated within batch or present in
// kept, preserving first-occurrence order.
func dedupAgainst[T any](batch, kept []T, identity func(T) string) []T {
	seen := make(map[string]struct{}, len(batch)+len(kept))
	for _, v := range kept {
		seen[identity(v)] = struct{}{}
	}
	out := batch[:0]
	for _, v := range batch {
		id := identity(v)
		if _, dup := seen[id]; dup {
			duplicatesSuppressedTotal.Inc()
			continue
		}
		seen[id] = struct{}{}
		out = append(out, v)
	}
	clear(batch[len(out):])
	return out
}
