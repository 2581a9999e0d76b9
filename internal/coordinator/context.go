package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/mapreduce"
	"DistWordFreq/internal/source"
	"DistWordFreq/internal/types"
	"DistWordFreq/internal/vocab"
	"DistWordFreq/internal/wordcount"
)

// Plan is what every worker needs before partitions arrive. The vocabulary
// is read-only once handed over.
type Plan struct {
	JobID       string
	Vocabulary  *types.Vocabulary
	Normalizer  vocab.Normalizer
	Workers     int
	TaskTimeout time.Duration
	JobTimeout  time.Duration
}

// ExecutionContext owns the workers of a job and their lifecycle.
type ExecutionContext interface {
	// Workers is the number of workers available when a job asks for 0.
	Workers() int
	// Start prepares the workers for plan.
	Start(ctx context.Context, plan Plan) error
	// Execute runs every partition and returns one outcome per partition.
	// It returns an error wrapping types.ErrCancelled if ctx is cancelled.
	Execute(ctx context.Context, parts []types.Partition) ([]mapreduce.Outcome, error)
	// Stop releases the workers.
	Stop() error
}

// LocalContext runs Worker Tasks on an in-process worker pool.
type LocalContext struct {
	src      source.Source
	parallel int
	logger   *logger.Logger

	mu      sync.Mutex
	engine  *mapreduce.Engine
	counter *wordcount.Counter
}

// NewLocalContext creates a pool of parallel goroutine workers reading from src.
func NewLocalContext(src source.Source, parallel int, lg *logger.Logger) *LocalContext {
	if lg == nil {
		lg = logger.Discard()
	}
	return &LocalContext{src: src, parallel: max(parallel, 1), logger: lg}
}

func (l *LocalContext) Workers() int {
	return l.parallel
}

func (l *LocalContext) Start(_ context.Context, plan Plan) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return fmt.Errorf("execution context already started")
	}

	// One goroutine per partition, capped at the pool size.
	engine := mapreduce.NewEngine(min(max(plan.Workers, 1), l.parallel), l.logger)
	engine.SetMaxRetries(1)
	engine.SetTaskTimeout(plan.TaskTimeout)
	engine.SetJobTimeout(plan.JobTimeout)

	l.engine = engine
	l.counter = wordcount.NewCounter(l.src, plan.Vocabulary, plan.Normalizer, l.logger)
	l.logger.Info("Local execution context started: job_id=%s workers=%d", plan.JobID, min(max(plan.Workers, 1), l.parallel))
	return nil
}

func (l *LocalContext) Execute(ctx context.Context, parts []types.Partition) ([]mapreduce.Outcome, error) {
	l.mu.Lock()
	engine, counter := l.engine, l.counter
	l.mu.Unlock()

	if engine == nil {
		return nil, fmt.Errorf("execution context not started")
	}
	return engine.Execute(ctx, parts, counter.Task)
}

func (l *LocalContext) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine = nil
	l.counter = nil
	return nil
}
