package partition

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"DistWordFreq/internal/types"
)

func makeFiles(n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("/data/file_%03d.txt", i)
	}
	return files
}

func TestRoundRobinCompleteness(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 31} {
		for _, w := range []int{1, 2, 3, 8, 40} {
			files := makeFiles(n)
			parts, err := RoundRobin(files, w)
			if err != nil {
				t.Fatalf("RoundRobin(%d, %d) failed: %v", n, w, err)
			}
			if len(parts) != w {
				t.Fatalf("Expected %d partitions, got %d", w, len(parts))
			}

			seen := make(map[string]int)
			minSize, maxSize := n, 0
			for i, p := range parts {
				if p.Index != i {
					t.Fatalf("Partition %d has index %d", i, p.Index)
				}
				for _, f := range p.Files {
					seen[f]++
				}
				minSize = min(minSize, len(p.Files))
				maxSize = max(maxSize, len(p.Files))
			}

			if len(seen) != n {
				t.Fatalf("files=%d workers=%d: %d distinct files assigned", n, w, len(seen))
			}
			for f, c := range seen {
				if c != 1 {
					t.Fatalf("File %s assigned %d times", f, c)
				}
			}
			if maxSize-minSize > 1 {
				t.Fatalf("files=%d workers=%d: size spread %d", n, w, maxSize-minSize)
			}
		}
	}
}

func TestRoundRobinKeepsOrder(t *testing.T) {
	parts, err := RoundRobin([]string{"a", "b", "c", "d", "e"}, 2)
	if err != nil {
		t.Fatalf("RoundRobin failed: %v", err)
	}
	if !reflect.DeepEqual(parts[0].Files, []string{"a", "c", "e"}) {
		t.Fatalf("Partition 0 = %v", parts[0].Files)
	}
	if !reflect.DeepEqual(parts[1].Files, []string{"b", "d"}) {
		t.Fatalf("Partition 1 = %v", parts[1].Files)
	}
}

func TestRoundRobinRejectsBadWorkerCount(t *testing.T) {
	for _, w := range []int{0, -3} {
		_, err := RoundRobin(makeFiles(3), w)
		if !errors.Is(err, types.ErrConfig) {
			t.Fatalf("workers=%d: expected ConfigError, got %v", w, err)
		}
	}
}
