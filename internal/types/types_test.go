package types

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestVocabularyDeduplicates(t *testing.T) {
	v := NewVocabulary("b", "a", "b", "c", "a")
	if v.Len() != 3 {
		t.Fatalf("Expected 3 distinct words, got %d", v.Len())
	}
	got := strings.Join(v.Words(), ",")
	if got != "a,b,c" {
		t.Fatalf("Words() = %s, want a,b,c", got)
	}
	if !v.Contains("a") || v.Contains("z") {
		t.Fatalf("Contains mismatch")
	}

	var nilVocab *Vocabulary
	if nilVocab.Len() != 0 || nilVocab.Contains("a") {
		t.Fatalf("nil vocabulary should be empty")
	}
}

func TestCountMapEqualIgnoresZero(t *testing.T) {
	a := CountMap{"a": 3, "b": 0}
	b := CountMap{"a": 3}
	if !a.Equal(b) || !b.Equal(a) {
		t.Fatalf("Expected maps to be equal ignoring zero entries")
	}
	if a.Equal(CountMap{"a": 2}) {
		t.Fatalf("Expected maps with different counts to differ")
	}
}

func TestJobStateTransitions(t *testing.T) {
	path := []JobState{StateInit, StateVocabLoaded, StatePartitioned, StateDispatched, StateCollecting, StateMerged, StateRanked, StateDone}
	for i := 1; i < len(path); i++ {
		if !CanTransition(path[i-1], path[i]) {
			t.Fatalf("Expected %s -> %s to be legal", path[i-1], path[i])
		}
	}

	if CanTransition(StateMerged, StateCollecting) {
		t.Fatalf("Backtracking must be rejected")
	}
	if !CanTransition(StateCollecting, StatePartialFailure) || !CanTransition(StatePartialFailure, StateMerged) {
		t.Fatalf("Partial failure must sit between collecting and merged")
	}
	if !CanTransition(StatePartitioned, StateConfigFailed) || CanTransition(StateDispatched, StateConfigFailed) {
		t.Fatalf("ConfigFailed must be reachable only before dispatch")
	}
	if !CanTransition(StateInit, StateVocabLoadFailed) || CanTransition(StatePartitioned, StateVocabLoadFailed) {
		t.Fatalf("Vocabulary failure only legal from init")
	}
	if CanTransition(StateDone, StateCancelled) {
		t.Fatalf("Terminal states cannot be cancelled")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &VocabularyError{Path: "ref.txt", Err: fs.ErrNotExist}
	if !errors.Is(err, ErrVocabulary) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("VocabularyError should match both sentinel and cause")
	}

	err = &ConfigError{Field: "workers", Reason: "must be >= 1"}
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("ConfigError should match ErrConfig")
	}

	err = &WorkerTimeout{Partition: 2}
	if !errors.Is(err, ErrWorkerTimeout) {
		t.Fatalf("WorkerTimeout should match ErrWorkerTimeout")
	}
}

func TestReportSummaryDistinguishesCompleteness(t *testing.T) {
	r := &Report{Ranked: RankedResult{{Word: "a", Count: 3}}, Files: 2, Workers: 2}
	if !strings.Contains(r.Summary(), "complete data") {
		t.Fatalf("Expected complete-data summary, got:\n%s", r.Summary())
	}

	r.Failures = []Failure{
		{Path: "/x/b.txt", Kind: FailureIO, Reason: "permission denied"},
		{Path: "/x/b.txt", Kind: FailureIO, Reason: "permission denied"},
	}
	if r.Complete() {
		t.Fatalf("Report with failures is not complete")
	}
	if !strings.Contains(r.Summary(), "1 files skipped") {
		t.Fatalf("Expected skipped count in summary, got:\n%s", r.Summary())
	}
}
