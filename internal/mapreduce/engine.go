package mapreduce

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/types"
)

// Task turns one partition into a partial result. It must return promptly
// with ctx.Err() once ctx is done.
type Task func(ctx context.Context, p types.Partition) (types.PartialResult, error)

// Outcome is what the engine reports for a partition. Err is nil on
// success, *types.WorkerTimeout when a deadline fired, or the last task error.
type Outcome struct {
	Partition types.Partition
	Result    types.PartialResult
	Err       error
}

// Engine runs tasks on a fixed pool of workers pulling partitions from a queue.
type Engine struct {
	workers     int
	maxRetries  int
	taskTimeout time.Duration
	jobTimeout  time.Duration
	logger      *logger.Logger
}

// NewEngine creates an engine with the given number of concurrent workers.
func NewEngine(workers int, lg *logger.Logger) *Engine {
	if lg == nil {
		lg = logger.Discard()
	}
	return &Engine{
		workers:    max(workers, 1),
		maxRetries: 3,
		logger:     lg,
	}
}

// SetMaxRetries configures how often a failing task is attempted. Timeouts are never retried.
func (e *Engine) SetMaxRetries(retries int) {
	e.maxRetries = max(retries, 1)
}

// SetTaskTimeout bounds a single task attempt. Zero disables the deadline.
func (e *Engine) SetTaskTimeout(d time.Duration) {
	e.taskTimeout = d
}

// SetJobTimeout bounds the whole fan-in. Partitions still running when it
// fires are reported as timed out. Zero disables the deadline.
func (e *Engine) SetJobTimeout(d time.Duration) {
	e.jobTimeout = d
}

// Execute dispatches every partition and blocks until all report or the job
// deadline fires. If ctx is cancelled first, no outcome is returned.
func (e *Engine) Execute(ctx context.Context, parts []types.Partition, task Task) ([]Outcome, error) {
	queue := make(chan types.Partition, len(parts))
	for _, p := range parts {
		queue <- p
	}
	close(queue)

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Outcome, len(parts))
	var wg sync.WaitGroup

	n := min(e.workers, len(parts))
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for p := range queue {
				if workCtx.Err() != nil {
					return
				}
				e.logger.Debug("Worker picked partition: worker=%d partition=%d files=%d", id, p.Index, len(p.Files))
				results <- e.runTask(workCtx, p, task)
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var deadline <-chan time.Time
	if e.jobTimeout > 0 {
		timer := time.NewTimer(e.jobTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	outcomes := make([]Outcome, 0, len(parts))
	for {
		select {
		case o, ok := <-results:
			if !ok {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %v", types.ErrCancelled, ctx.Err())
				}
				sortOutcomes(outcomes)
				return outcomes, nil
			}
			outcomes = append(outcomes, o)

		case <-deadline:
			cancel()
			e.logger.Warn("Job deadline exceeded: finished=%d partitions=%d", len(outcomes), len(parts))
			return e.fillTimeouts(parts, outcomes), nil

		case <-ctx.Done():
			e.logger.Warn("Job cancelled while collecting: finished=%d partitions=%d", len(outcomes), len(parts))
			return nil, fmt.Errorf("%w: %v", types.ErrCancelled, ctx.Err())
		}
	}
}

// runTask executes one partition with retries.
func (e *Engine) runTask(ctx context.Context, p types.Partition, task Task) Outcome {
	var lastErr error

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		res, err := e.attempt(ctx, p, task)
		if err == nil {
			return Outcome{Partition: p, Result: res}
		}
		lastErr = err

		if errors.Is(err, types.ErrWorkerTimeout) || ctx.Err() != nil {
			break
		}
		e.logger.Warn("Task failed: partition=%d attempt=%d/%d err=%v", p.Index, attempt+1, e.maxRetries, err)
	}

	return Outcome{Partition: p, Err: lastErr}
}

func (e *Engine) attempt(ctx context.Context, p types.Partition, task Task) (types.PartialResult, error) {
	if e.taskTimeout <= 0 {
		return task(ctx, p)
	}

	taskCtx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	type reply struct {
		res types.PartialResult
		err error
	}
	done := make(chan reply, 1)
	go func() {
		res, err := task(taskCtx, p)
		done <- reply{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(taskCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return types.PartialResult{}, &types.WorkerTimeout{Partition: p.Index}
		}
		return r.res, r.err
	case <-taskCtx.Done():
		if ctx.Err() != nil {
			return types.PartialResult{}, ctx.Err()
		}
		return types.PartialResult{}, &types.WorkerTimeout{Partition: p.Index}
	}
}

func (e *Engine) fillTimeouts(parts []types.Partition, outcomes []Outcome) []Outcome {
	done := make(map[int]bool, len(outcomes))
	for _, o := range outcomes {
		done[o.Partition.Index] = true
	}
	for _, p := range parts {
		if !done[p.Index] {
			outcomes = append(outcomes, Outcome{Partition: p, Err: &types.WorkerTimeout{Partition: p.Index}})
		}
	}
	sortOutcomes(outcomes)
	return outcomes
}

func sortOutcomes(outcomes []Outcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Partition.Index < outcomes[j].Partition.Index
	})
}
