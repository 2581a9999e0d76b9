package raft

import (
	"fmt"
	"io"
	"sync"
	"time"

	raft "github.com/hashicorp/raft"
	jsoniter "github.com/json-iterator/go"

	"DistWordFreq/internal/config"
	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Log entry operations.
const (
	OpSubmit  = "submit"
	OpState   = "state"
	OpPartial = "partial"
	OpResult  = "result"
)

// LogEntry represents an entry in the Raft log
type LogEntry struct {
	JobID     string              `json:"job_id"`
	Operation string              `json:"operation"`
	Data      jsoniter.RawMessage `json:"data"`
	Timestamp time.Time           `json:"timestamp"`
}

// JobRecord is the replicated view of one job.
type JobRecord struct {
	ID        string                      `json:"id"`
	Job       config.Job                  `json:"job"`
	State     types.JobState              `json:"state"`
	Partials  map[int]types.PartialResult `json:"partials"`
	Report    *types.Report               `json:"report,omitempty"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// Ledger is the state every coordinator replica agrees on.
type Ledger struct {
	Jobs    map[string]*JobRecord `json:"jobs"`
	Version int64                 `json:"version"`
}

func newLedger() *Ledger {
	return &Ledger{Jobs: make(map[string]*JobRecord)}
}

// FSM implements the Finite State Machine for Raft
type FSM struct {
	mu     sync.RWMutex
	ledger *Ledger
	logger *logger.Logger
}

// NewFSM creates a new FSM with an empty ledger
func NewFSM(lg *logger.Logger) *FSM {
	if lg == nil {
		lg = logger.Discard()
	}
	return &FSM{ledger: newLedger(), logger: lg}
}

// Apply implements raft.FSM - processes a log entry committed by Raft
func (f *FSM) Apply(log *raft.Log) interface{} {
	var entry LogEntry
	if err := json.Unmarshal(log.Data, &entry); err != nil {
		f.logger.Error("Failed to unmarshal log entry: %v", err)
		return fmt.Errorf("failed to unmarshal log entry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debug("Applying log entry: job_id=%s operation=%s", entry.JobID, entry.Operation)

	if entry.Operation == OpSubmit {
		var job config.Job
		if err := json.Unmarshal(entry.Data, &job); err != nil {
			return fmt.Errorf("invalid submit data: %w", err)
		}
		f.ledger.Jobs[entry.JobID] = &JobRecord{
			ID:        entry.JobID,
			Job:       job,
			State:     types.StateInit,
			Partials:  make(map[int]types.PartialResult),
			UpdatedAt: entry.Timestamp,
		}
		f.ledger.Version++
		return nil
	}

	rec, ok := f.ledger.Jobs[entry.JobID]
	if !ok {
		f.logger.Warn("Job not found: job_id=%s operation=%s", entry.JobID, entry.Operation)
		return fmt.Errorf("job not found: %s", entry.JobID)
	}

	switch entry.Operation {
	case OpState:
		var state types.JobState
		if err := json.Unmarshal(entry.Data, &state); err != nil {
			return fmt.Errorf("invalid state data: %w", err)
		}
		rec.State = state

	case OpPartial:
		var res types.PartialResult
		if err := json.Unmarshal(entry.Data, &res); err != nil {
			return fmt.Errorf("invalid partial data: %w", err)
		}
		rec.Partials[res.Partition] = res

	case OpResult:
		var report types.Report
		if err := json.Unmarshal(entry.Data, &report); err != nil {
			return fmt.Errorf("invalid result data: %w", err)
		}
		rec.Report = &report

	default:
		f.logger.Warn("Unknown job operation: %s", entry.Operation)
		return fmt.Errorf("unknown job operation: %s", entry.Operation)
	}

	rec.UpdatedAt = entry.Timestamp
	f.ledger.Version++
	return nil
}

// Snapshot implements raft.FSM - creates a snapshot of the current ledger
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := json.Marshal(f.ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger: %w", err)
	}
	return &snapshot{data: data}, nil
}

// Restore implements raft.FSM - restores the ledger from a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	ledger := newLedger()
	if err := json.NewDecoder(rc).Decode(ledger); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	f.mu.Lock()
	f.ledger = ledger
	f.mu.Unlock()
	return nil
}

// Job returns a copy of the record for jobID.
func (f *FSM) Job(jobID string) (*JobRecord, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, ok := f.ledger.Jobs[jobID]
	if !ok {
		return nil, false
	}
	cp := *rec
	cp.Partials = make(map[int]types.PartialResult, len(rec.Partials))
	for k, v := range rec.Partials {
		cp.Partials[k] = v
	}
	return &cp, true
}

// Version returns the number of applied mutations.
func (f *FSM) Version() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ledger.Version
}

// snapshot implements raft.FSMSnapshot
type snapshot struct {
	data []byte
}

// Persist writes the snapshot to a sink
func (s *snapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := sink.Write(s.data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

// Release is called when we are done with the snapshot
func (s *snapshot) Release() {}
