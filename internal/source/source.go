package source

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxWordBytes bounds a single whitespace-free token held in memory while
// scanning. Line length is not bounded.
const MaxWordBytes = 16 * 1024 * 1024

// Source enumerates job inputs and opens them for reading.
type Source interface {
	// List returns the eligible files in dir in a stable order. Files are
	// eligible when their name ends in ext (case-insensitive) and is not
	// the reference file.
	List(dir, reference, ext string) ([]string, error)
	Open(path string) (io.ReadCloser, error)
}

// ScanWords feeds every whitespace-separated word of r to fn without
// materializing the whole content. Words split exactly as strings.Fields
// splits them. Scanning stops at the first error fn returns.
func ScanWords(r io.Reader, fn func(word string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxWordBytes)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ReadWords opens path from src and scans it word by word.
func ReadWords(src Source, path string, fn func(word string) error) error {
	rc, err := src.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	return ScanWords(rc, fn)
}

func eligible(name, reference, ext string) bool {
	if name == reference {
		return false
	}
	return ext == "" || strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
}

// Local reads from the local file system.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) List(dir, reference, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if eligible(e.Name(), reference, ext) && regularFile(path, e) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// regularFile reports whether e is a regular file, following symlinks.
func regularFile(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (l *Local) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, &fs.PathError{Op: "open", Path: path, Err: fmt.Errorf("is a directory")}
	}
	return f, nil
}
