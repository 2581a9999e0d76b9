package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfig        = errors.New("invalid configuration")
	ErrVocabulary    = errors.New("vocabulary unavailable")
	ErrWorkerIO      = errors.New("worker input unreadable")
	ErrWorkerTimeout = errors.New("worker deadline exceeded")
	ErrCancelled     = errors.New("job cancelled")
)

// ConfigError rejects a job before it starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// VocabularyError aborts a job before dispatch.
type VocabularyError struct {
	Path string
	Err  error
}

func (e *VocabularyError) Error() string {
	return fmt.Sprintf("failed to load vocabulary from %s: %v", e.Path, e.Err)
}

func (e *VocabularyError) Unwrap() []error { return []error{ErrVocabulary, e.Err} }

// WorkerIOError marks one unreadable input file.
type WorkerIOError struct {
	Path string
	Err  error
}

func (e *WorkerIOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *WorkerIOError) Unwrap() []error { return []error{ErrWorkerIO, e.Err} }

// WorkerTimeout marks a partition whose worker missed its deadline.
type WorkerTimeout struct {
	Partition int
}

func (e *WorkerTimeout) Error() string {
	return fmt.Sprintf("partition %d: %v", e.Partition, ErrWorkerTimeout)
}

func (e *WorkerTimeout) Unwrap() error { return ErrWorkerTimeout }
