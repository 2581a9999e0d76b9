package mapreduce

import "DistWordFreq/internal/types"

// Merge returns a fresh CountMap holding a[w] + b[w] for every word in either
// input. Neither input is modified, so the operation is safe on shared values.
func Merge(a, b types.CountMap) types.CountMap {
	out := make(types.CountMap, max(len(a), len(b)))
	for w, c := range a {
		out[w] = c
	}
	for w, c := range b {
		out[w] += c
	}
	return out
}

// MergeInto adds src into dst in place. dst must be owned by the caller.
func MergeInto(dst, src types.CountMap) {
	for w, c := range src {
		dst[w] += c
	}
}

// Fold merges maps left to right starting from the empty map.
func Fold(maps ...types.CountMap) types.CountMap {
	acc := make(types.CountMap)
	for _, m := range maps {
		MergeInto(acc, m)
	}
	return acc
}
