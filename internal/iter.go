package internal

import (
	"iter"
	"maps"
	"slices"
)

// IterSeq2SortedFunc iterates a map in the key order defined by cmp.
func IterSeq2SortedFunc[K comparable, V any](m map[K]V, cmp func(a, b K) int) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		keys := slices.SortedFunc(maps.Keys(m), cmp)
		for _, key := range keys {
			if !yield(key, m[key]) {
				return // Stop if the consumer stops
			}
		}
	}
}

// IterSeqAligned iterates the distinct 8-byte-aligned base addresses of a
// byte-keyed map, in no particular order.
func IterSeqAligned(m map[int64]byte) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		seen := map[int64]bool{}
		for addr := range m {
			base := addr &^ 0x7
			if seen[base] {
				continue
			}
			seen[base] = true
			if !yield(base) {
				return
			}
		}
	}
}
