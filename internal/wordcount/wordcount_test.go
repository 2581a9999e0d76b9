package wordcount

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"DistWordFreq/internal/source"
	"DistWordFreq/internal/types"
	"DistWordFreq/internal/vocab"
)

// failingSource wraps a source and refuses to open selected paths.
type failingSource struct {
	inner source.Source
	fail  map[string]bool
}

func (f *failingSource) List(dir, reference, ext string) ([]string, error) {
	return f.inner.List(dir, reference, ext)
}

func (f *failingSource) Open(path string) (io.ReadCloser, error) {
	if f.fail[path] {
		return nil, fmt.Errorf("permission denied")
	}
	return f.inner.Open(path)
}

func writeFiles(t *testing.T, contents ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i, c := range contents {
		p := filepath.Join(dir, fmt.Sprintf("file_%02d.txt", i+2))
		if err := os.WriteFile(p, []byte(c), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestCountReaderRestrictsToVocabulary(t *testing.T) {
	v := types.NewVocabulary("a", "b")
	c := NewCounter(source.NewLocal(), v, vocab.Normalizer{CaseInsensitive: true}, nil)

	counts, err := c.CountReader(context.Background(), strings.NewReader("A a b\nzzz B\n  a\tq"))
	if err != nil {
		t.Fatalf("CountReader failed: %v", err)
	}

	want := types.CountMap{"a": 3, "b": 2}
	if !counts.Equal(want) || len(counts) != 2 {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
}

func TestCountReaderCaseSensitive(t *testing.T) {
	v := types.NewVocabulary("a")
	c := NewCounter(source.NewLocal(), v, vocab.Normalizer{}, nil)

	counts, err := c.CountReader(context.Background(), strings.NewReader("A a A"))
	if err != nil {
		t.Fatalf("CountReader failed: %v", err)
	}
	if counts["a"] != 1 {
		t.Fatalf("Expected 1 exact match, got %d", counts["a"])
	}
}

func TestTaskFoldsPartition(t *testing.T) {
	files := writeFiles(t, "a a b", "b a")
	c := NewCounter(source.NewLocal(), types.NewVocabulary("a", "b"), vocab.Normalizer{CaseInsensitive: true}, nil)

	res, err := c.Task(context.Background(), types.Partition{Index: 0, Files: files})
	if err != nil {
		t.Fatalf("Task failed: %v", err)
	}
	if !res.Counts.Equal(types.CountMap{"a": 3, "b": 2}) {
		t.Fatalf("Unexpected counts: %v", res.Counts)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("Unexpected failures: %v", res.Failures)
	}
}

func TestTaskSkipsUnreadableFile(t *testing.T) {
	files := writeFiles(t, "a", "a a", "a a a")
	src := &failingSource{inner: source.NewLocal(), fail: map[string]bool{files[1]: true}}
	c := NewCounter(src, types.NewVocabulary("a"), vocab.Normalizer{}, nil)

	res, err := c.Task(context.Background(), types.Partition{Index: 2, Files: files})
	if err != nil {
		t.Fatalf("Task failed: %v", err)
	}
	if res.Counts["a"] != 4 {
		t.Fatalf("Expected 4 from the readable files, got %d", res.Counts["a"])
	}
	if len(res.Failures) != 1 || res.Failures[0].Path != files[1] || res.Failures[0].Partition != 2 {
		t.Fatalf("Unexpected failures: %+v", res.Failures)
	}
	if res.Failures[0].Kind != types.FailureIO {
		t.Fatalf("Expected io failure kind, got %s", res.Failures[0].Kind)
	}
}

func TestCountFileMissing(t *testing.T) {
	c := NewCounter(source.NewLocal(), types.NewVocabulary("a"), vocab.Normalizer{}, nil)

	_, err := c.CountFile(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	if !errors.Is(err, types.ErrWorkerIO) {
		t.Fatalf("Expected WorkerIOError, got %v", err)
	}
}

func TestTaskCancelled(t *testing.T) {
	files := writeFiles(t, "a", "a")
	c := NewCounter(source.NewLocal(), types.NewVocabulary("a"), vocab.Normalizer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Task(ctx, types.Partition{Files: files}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestTaskCountsSingleHugeLine(t *testing.T) {
	n := source.MaxWordBytes/2 + 1024
	files := writeFiles(t, strings.Repeat("a ", n))
	c := NewCounter(source.NewLocal(), types.NewVocabulary("a"), vocab.Normalizer{}, nil)

	res, err := c.Task(context.Background(), types.Partition{Files: files})
	if err != nil {
		t.Fatalf("Task failed: %v", err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("Unexpected failures: %+v", res.Failures)
	}
	if res.Counts["a"] != int64(n) {
		t.Fatalf("Expected %d, got %d", n, res.Counts["a"])
	}
}
