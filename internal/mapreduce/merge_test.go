package mapreduce

import (
	"testing"

	"DistWordFreq/internal/types"
)

func sampleMaps() []types.CountMap {
	return []types.CountMap{
		{"a": 2, "b": 1},
		{"b": 4, "c": 7},
		{},
		{"a": 1, "c": 1, "d": 9},
	}
}

func TestMergeAssociative(t *testing.T) {
	m := sampleMaps()
	a, b, c := m[0], m[1], m[3]

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))
	if !left.Equal(right) {
		t.Fatalf("merge not associative: %v vs %v", left, right)
	}
}

func TestMergeCommutativeAndPure(t *testing.T) {
	a := types.CountMap{"a": 2}
	b := types.CountMap{"a": 3, "b": 1}

	if !Merge(a, b).Equal(Merge(b, a)) {
		t.Fatalf("merge not commutative")
	}
	if a["a"] != 2 || len(a) != 1 || b["a"] != 3 {
		t.Fatalf("merge mutated its inputs: a=%v b=%v", a, b)
	}
}

func TestFoldOrderIndependent(t *testing.T) {
	m := sampleMaps()
	want := types.CountMap{"a": 3, "b": 5, "c": 8, "d": 9}

	perms := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, perm := range perms {
		ordered := make([]types.CountMap, len(perm))
		for i, idx := range perm {
			ordered[i] = m[idx]
		}
		if got := Fold(ordered...); !got.Equal(want) {
			t.Fatalf("Fold(%v) = %v, want %v", perm, got, want)
		}
	}
}

func TestFoldIdentity(t *testing.T) {
	if got := Fold(); len(got) != 0 {
		t.Fatalf("Fold() of nothing should be empty, got %v", got)
	}
}
