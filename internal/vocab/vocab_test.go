package vocab

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"DistWordFreq/internal/source"
	"DistWordFreq/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return p
}

func TestLoadCaseInsensitive(t *testing.T) {
	ref := writeFile(t, t.TempDir(), "file_01.txt", "The cat\n  the DOG\tcat\n\n")

	v, err := Load(source.NewLocal(), ref, Normalizer{CaseInsensitive: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"cat", "dog", "the"}
	if !reflect.DeepEqual(v.Words(), want) {
		t.Fatalf("Words() = %v, want %v", v.Words(), want)
	}
}

func TestLoadCaseSensitive(t *testing.T) {
	ref := writeFile(t, t.TempDir(), "file_01.txt", "The the THE")

	v, err := Load(source.NewLocal(), ref, Normalizer{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Len() != 3 {
		t.Fatalf("Expected 3 case-distinct words, got %v", v.Words())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(source.NewLocal(), filepath.Join(t.TempDir(), "missing.txt"), Normalizer{})
	if err == nil {
		t.Fatalf("Expected error for missing reference file")
	}

	var verr *types.VocabularyError
	if !errors.As(err, &verr) || !errors.Is(err, types.ErrVocabulary) {
		t.Fatalf("Expected VocabularyError, got %T: %v", err, err)
	}
}

func TestNormalizeNonASCII(t *testing.T) {
	n := Normalizer{CaseInsensitive: true}
	if got := n.Normalize("ÉCOLE"); got != "école" {
		t.Fatalf("Normalize() = %q, want %q", got, "école")
	}
}

func TestLoadSingleHugeLine(t *testing.T) {
	line := strings.Repeat("x ", source.MaxWordBytes/2) + "Y"
	ref := writeFile(t, t.TempDir(), "file_01.txt", line)

	v, err := Load(source.NewLocal(), ref, Normalizer{CaseInsensitive: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := []string{"x", "y"}; !reflect.DeepEqual(v.Words(), want) {
		t.Fatalf("Words() = %v, want %v", v.Words(), want)
	}
}
