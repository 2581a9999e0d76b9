package rank

import (
	"sort"

	"DistWordFreq/internal/types"
)

// TopN returns at most n entries of counts ordered by count descending and
// then word ascending. Zero counts are dropped. Negative n yields nothing.
func TopN(counts types.CountMap, n int) types.RankedResult {
	if n <= 0 {
		return types.RankedResult{}
	}

	ranked := make(types.RankedResult, 0, len(counts))
	for w, c := range counts {
		if c > 0 {
			ranked = append(ranked, types.WordCount{Word: w, Count: c})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
