package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Vocabulary is the immutable set of normalized target words.
type Vocabulary struct {
	words map[string]struct{}
}

// NewVocabulary builds a Vocabulary from already-normalized words. Duplicates collapse.
func NewVocabulary(words ...string) *Vocabulary {
	v := &Vocabulary{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		v.words[w] = struct{}{}
	}
	return v
}

// Contains reports whether word is a target word.
func (v *Vocabulary) Contains(word string) bool {
	if v == nil {
		return false
	}
	_, ok := v.words[word]
	return ok
}

// Len returns the number of distinct target words.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.words)
}

// Words returns the target words in ascending order.
func (v *Vocabulary) Words() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v.words))
	for w := range v.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// CountMap maps a vocabulary word to its number of occurrences.
type CountMap map[string]int64

// Clone returns an independent copy of m.
func (m CountMap) Clone() CountMap {
	out := make(CountMap, len(m))
	for w, c := range m {
		out[w] = c
	}
	return out
}

// Equal reports whether both maps hold the same non-zero counts.
func (m CountMap) Equal(other CountMap) bool {
	for w, c := range m {
		if c != 0 && other[w] != c {
			return false
		}
	}
	for w, c := range other {
		if c != 0 && m[w] != c {
			return false
		}
	}
	return true
}

// Total returns the sum of all counts.
func (m CountMap) Total() int64 {
	var total int64
	for _, c := range m {
		total += c
	}
	return total
}

// Partition is the ordered list of files assigned to one worker.
type Partition struct {
	Index int      `json:"index"`
	Files []string `json:"files"`
}

// WordCount is one entry of a RankedResult.
type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// RankedResult is sorted by count descending, then word ascending.
type RankedResult []WordCount

// FailureKind classifies a degraded input.
type FailureKind string

const (
	FailureIO      FailureKind = "io"
	FailureTimeout FailureKind = "timeout"
	FailureWorker  FailureKind = "worker"
)

// Failure records a file whose contribution was dropped.
type Failure struct {
	Path      string      `json:"path"`
	Partition int         `json:"partition"`
	Kind      FailureKind `json:"kind"`
	Reason    string      `json:"reason"`
}

// PartialResult is what a Worker Task hands back to the coordinator.
type PartialResult struct {
	Partition int       `json:"partition"`
	Counts    CountMap  `json:"counts"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Report is the outcome of one job.
type Report struct {
	JobID          string        `json:"job_id"`
	State          JobState      `json:"state"`
	Ranked         RankedResult  `json:"ranked"`
	Failures       []Failure     `json:"failures"`
	Workers        int           `json:"workers"`
	Files          int           `json:"files"`
	VocabularySize int           `json:"vocabulary_size"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Complete reports whether the ranking was computed without skipping any file.
func (r *Report) Complete() bool {
	return len(r.Failures) == 0
}

// FailedPaths returns the distinct failed paths in ascending order.
func (r *Report) FailedPaths() []string {
	seen := make(map[string]struct{}, len(r.Failures))
	var paths []string
	for _, f := range r.Failures {
		if _, ok := seen[f.Path]; ok {
			continue
		}
		seen[f.Path] = struct{}{}
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)
	return paths
}

// Summary renders the report as plain text.
func (r *Report) Summary() string {
	var b strings.Builder

	if r.Complete() {
		fmt.Fprintf(&b, "Ranked result computed from complete data (%d files, %d workers)\n", r.Files, r.Workers)
	} else {
		fmt.Fprintf(&b, "Ranked result computed with %d files skipped due to errors (%d files, %d workers)\n",
			len(r.FailedPaths()), r.Files, r.Workers)
	}

	for i, wc := range r.Ranked {
		fmt.Fprintf(&b, "%d. %s: %d\n", i+1, wc.Word, wc.Count)
	}
	if len(r.Ranked) == 0 {
		b.WriteString("No target words found\n")
	}

	for _, f := range r.Failures {
		fmt.Fprintf(&b, "skipped %s (%s): %s\n", f.Path, f.Kind, f.Reason)
	}

	fmt.Fprintf(&b, "Elapsed: %.4fs\n", r.Elapsed.Seconds())
	return b.String()
}
