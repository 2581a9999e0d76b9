package coordinator

import (
	"DistWordFreq/internal/config"
	"DistWordFreq/internal/types"
)

// Journal records job progress somewhere durable.
type Journal interface {
	RecordJob(jobID string, job config.Job) error
	RecordState(jobID string, state types.JobState) error
	RecordPartial(jobID string, res types.PartialResult) error
	RecordResult(jobID string, report *types.Report) error
}

type nopJournal struct{}

func (nopJournal) RecordJob(string, config.Job) error              { return nil }
func (nopJournal) RecordState(string, types.JobState) error        { return nil }
func (nopJournal) RecordPartial(string, types.PartialResult) error { return nil }
func (nopJournal) RecordResult(string, *types.Report) error        { return nil }
