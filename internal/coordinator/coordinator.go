package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"DistWordFreq/internal/config"
	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/mapreduce"
	"DistWordFreq/internal/partition"
	"DistWordFreq/internal/rank"
	"DistWordFreq/internal/source"
	"DistWordFreq/internal/types"
	"DistWordFreq/internal/vocab"
)

// Coordinator drives one job at a time through its lifecycle:
// Init, VocabLoaded, Partitioned, Dispatched, Collecting, Merged, Ranked, Done.
type Coordinator struct {
	src     source.Source
	exec    ExecutionContext
	journal Journal
	logger  *logger.Logger

	mu      sync.RWMutex
	jobID   string
	state   types.JobState
	history []types.JobState
}

// New creates a coordinator enumerating inputs from src and running them on exec.
func New(src source.Source, exec ExecutionContext, lg *logger.Logger) *Coordinator {
	if lg == nil {
		lg = logger.Discard()
	}
	return &Coordinator{
		src:     src,
		exec:    exec,
		journal: nopJournal{},
		logger:  lg,
		state:   types.StateInit,
	}
}

// SetJournal makes the coordinator record job progress in j.
func (c *Coordinator) SetJournal(j Journal) {
	if j == nil {
		j = nopJournal{}
	}
	c.journal = j
}

// State returns the lifecycle state of the current or last job.
func (c *Coordinator) State() types.JobState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// History returns every state the current or last job went through.
func (c *Coordinator) History() []types.JobState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.JobState(nil), c.history...)
}

// Run executes job and returns its report. Only configuration errors,
// vocabulary errors and cancellation are returned as errors; every other
// failure is listed in the report.
func (c *Coordinator) Run(ctx context.Context, job config.Job) (*types.Report, error) {
	start := time.Now()
	jobID := "job-" + uuid.New().String()[:8]
	c.reset(jobID)

	if err := job.Validate(); err != nil {
		c.fail(types.StateConfigFailed, err)
		return nil, err
	}

	files, err := c.src.List(job.Dir, job.Reference, job.Extension)
	if err != nil {
		err = &types.ConfigError{Field: "dir", Reason: err.Error()}
		c.fail(types.StateConfigFailed, err)
		return nil, err
	}
	c.record(c.journal.RecordJob(jobID, job))
	c.logger.Info("Job submitted: %s", logger.Fields(map[string]interface{}{
		"job_id":  jobID,
		"dir":     job.Dir,
		"files":   len(files),
		"workers": job.Workers,
		"top":     job.TopN,
	}))

	norm := vocab.Normalizer{CaseInsensitive: job.CaseInsensitive}
	v, err := vocab.Load(c.src, job.ReferencePath(), norm)
	if err != nil {
		c.fail(types.StateVocabLoadFailed, err)
		return nil, err
	}
	c.transition(types.StateVocabLoaded)
	c.logger.Info("Vocabulary loaded: job_id=%s words=%d", jobID, v.Len())

	workers := job.Workers
	if workers == 0 {
		workers = c.exec.Workers()
	}
	parts, err := partition.RoundRobin(files, workers)
	if err != nil {
		c.fail(types.StateConfigFailed, err)
		return nil, err
	}
	c.transition(types.StatePartitioned)

	plan := Plan{
		JobID:       jobID,
		Vocabulary:  v,
		Normalizer:  norm,
		Workers:     workers,
		TaskTimeout: job.TaskTimeout,
		JobTimeout:  job.Timeout,
	}
	startErr := c.exec.Start(ctx, plan)
	switch {
	case startErr == nil:
		defer func() {
			if err := c.exec.Stop(); err != nil {
				c.logger.Warn("Failed to stop execution context: job_id=%s err=%v", jobID, err)
			}
		}()
	case errors.Is(startErr, types.ErrConfig):
		c.fail(types.StateConfigFailed, startErr)
		return nil, startErr
	case ctx.Err() != nil:
		c.fail(types.StateCancelled, startErr)
		return nil, fmt.Errorf("%w: %v", types.ErrCancelled, ctx.Err())
	default:
		c.logger.Warn("No worker accepted the job, every partition fails: job_id=%s err=%v", jobID, startErr)
	}
	c.transition(types.StateDispatched)

	c.transition(types.StateCollecting)
	var outcomes []mapreduce.Outcome
	if startErr != nil {
		outcomes = unassigned(parts, startErr)
	} else {
		outcomes, err = c.exec.Execute(ctx, parts)
		if err != nil {
			c.fail(types.StateCancelled, err)
			if !errors.Is(err, types.ErrCancelled) {
				err = fmt.Errorf("%w: %v", types.ErrCancelled, err)
			}
			return nil, err
		}
	}

	partials, failures := c.collect(jobID, outcomes)
	if len(failures) > 0 {
		c.transition(types.StatePartialFailure)
		c.logger.Warn("Job degraded: job_id=%s failed_files=%d", jobID, len(failures))
	}

	merged := mapreduce.Fold(partials...)
	c.transition(types.StateMerged)

	ranked := rank.TopN(merged, job.TopN)
	c.transition(types.StateRanked)

	report := &types.Report{
		JobID:          jobID,
		State:          types.StateDone,
		Ranked:         ranked,
		Failures:       failures,
		Workers:        workers,
		Files:          len(files),
		VocabularySize: v.Len(),
		Elapsed:        time.Since(start),
	}
	c.record(c.journal.RecordResult(jobID, report))
	c.transition(types.StateDone)

	c.logger.Info("Job done: job_id=%s ranked=%d failed_files=%d elapsed=%s", jobID, len(ranked), len(failures), report.Elapsed)
	return report, nil
}

// collect separates usable partial results from failures. A partition that
// failed as a whole contributes nothing and every one of its files is listed.
func (c *Coordinator) collect(jobID string, outcomes []mapreduce.Outcome) ([]types.CountMap, []types.Failure) {
	var partials []types.CountMap
	var failures []types.Failure

	for _, o := range outcomes {
		if o.Err == nil {
			partials = append(partials, o.Result.Counts)
			failures = append(failures, o.Result.Failures...)
			c.record(c.journal.RecordPartial(jobID, o.Result))
			continue
		}

		kind := types.FailureWorker
		if errors.Is(o.Err, types.ErrWorkerTimeout) {
			kind = types.FailureTimeout
		}
		c.logger.Warn("Partition failed: job_id=%s partition=%d files=%d err=%v", jobID, o.Partition.Index, len(o.Partition.Files), o.Err)

		for _, path := range o.Partition.Files {
			failures = append(failures, types.Failure{
				Path:      path,
				Partition: o.Partition.Index,
				Kind:      kind,
				Reason:    o.Err.Error(),
			})
		}
		c.record(c.journal.RecordPartial(jobID, types.PartialResult{
			Partition: o.Partition.Index,
			Counts:    types.CountMap{},
			Failures:  failures[len(failures)-len(o.Partition.Files):],
		}))
	}

	return partials, failures
}

// unassigned reports every partition as failed with err.
func unassigned(parts []types.Partition, err error) []mapreduce.Outcome {
	outcomes := make([]mapreduce.Outcome, len(parts))
	for i, p := range parts {
		outcomes[i] = mapreduce.Outcome{Partition: p, Err: err}
	}
	return outcomes
}

func (c *Coordinator) reset(jobID string) {
	c.mu.Lock()
	c.jobID = jobID
	c.state = types.StateInit
	c.history = []types.JobState{types.StateInit}
	c.mu.Unlock()
}

func (c *Coordinator) transition(to types.JobState) {
	c.mu.Lock()
	from := c.state
	if !types.CanTransition(from, to) {
		c.mu.Unlock()
		panic(fmt.Sprintf("illegal job transition %s -> %s", from, to))
	}
	c.state = to
	c.history = append(c.history, to)
	jobID := c.jobID
	c.mu.Unlock()

	c.logger.Debug("Job state: job_id=%s %s -> %s", jobID, from, to)
	c.record(c.journal.RecordState(jobID, to))
}

func (c *Coordinator) fail(to types.JobState, err error) {
	c.logger.Error("Job failed: state=%s err=%v", to, err)
	c.transition(to)
}

func (c *Coordinator) record(err error) {
	if err != nil {
		c.logger.Warn("Failed to record job progress: %v", err)
	}
}
