package rank

import (
	"reflect"
	"testing"

	"DistWordFreq/internal/types"
)

func TestTopN(t *testing.T) {
	tests := []struct {
		name   string
		counts types.CountMap
		n      int
		want   types.RankedResult
	}{
		{
			name:   "simple",
			counts: types.CountMap{"a": 3, "b": 2},
			n:      2,
			want:   types.RankedResult{{Word: "a", Count: 3}, {Word: "b", Count: 2}},
		},
		{
			name:   "tie broken lexicographically",
			counts: types.CountMap{"b": 2, "a": 2},
			n:      2,
			want:   types.RankedResult{{Word: "a", Count: 2}, {Word: "b", Count: 2}},
		},
		{
			name:   "truncated",
			counts: types.CountMap{"x": 1, "y": 5, "z": 5, "w": 2},
			n:      2,
			want:   types.RankedResult{{Word: "y", Count: 5}, {Word: "z", Count: 5}},
		},
		{
			name:   "n larger than matches",
			counts: types.CountMap{"x": 1, "zero": 0},
			n:      10,
			want:   types.RankedResult{{Word: "x", Count: 1}},
		},
		{
			name:   "empty",
			counts: types.CountMap{},
			n:      5,
			want:   types.RankedResult{},
		},
		{
			name:   "n zero",
			counts: types.CountMap{"a": 1},
			n:      0,
			want:   types.RankedResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopN(tt.counts, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("TopN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopNDeterministic(t *testing.T) {
	counts := types.CountMap{}
	for _, w := range []string{"q", "w", "e", "r", "t", "y", "u", "i", "o", "p"} {
		counts[w] = 4
	}
	counts["a"] = 9

	first := TopN(counts, 6)
	for i := 0; i < 20; i++ {
		if got := TopN(counts, 6); !reflect.DeepEqual(got, first) {
			t.Fatalf("TopN not deterministic: %v vs %v", got, first)
		}
	}
	if first[0].Word != "a" || first[1].Word != "e" {
		t.Fatalf("Unexpected order: %v", first)
	}
}
