package config

import (
	"path/filepath"
	"time"

	"DistWordFreq/internal/types"
)

// Job describes one aggregation run.
type Job struct {
	Dir             string        `json:"dir"`              // directory holding the input files
	Reference       string        `json:"reference"`        // file name of the vocabulary source inside Dir
	Extension       string        `json:"extension"`        // only files with this suffix are counted
	Workers         int           `json:"workers"`          // 0 lets the execution context decide
	TopN            int           `json:"top_n"`            // size of the ranking
	CaseInsensitive bool          `json:"case_insensitive"` // fold case in vocabulary and counting
	Timeout         time.Duration `json:"timeout"`          // bound on collecting all partitions, 0 = none
	TaskTimeout     time.Duration `json:"task_timeout"`     // bound on one partition, 0 = none
}

// DefaultJob mirrors the launcher defaults.
func DefaultJob() Job {
	return Job{
		Reference:       "file_01.txt",
		Extension:       ".txt",
		Workers:         4,
		TopN:            10,
		CaseInsensitive: true,
	}
}

// ReferencePath is the full path of the reference file.
func (j Job) ReferencePath() string {
	return filepath.Join(j.Dir, j.Reference)
}

// Validate rejects jobs that must never start.
func (j Job) Validate() error {
	switch {
	case j.Dir == "":
		return &types.ConfigError{Field: "dir", Reason: "must not be empty"}
	case j.Reference == "":
		return &types.ConfigError{Field: "reference", Reason: "must not be empty"}
	case j.Workers < 0:
		return &types.ConfigError{Field: "workers", Reason: "must be >= 1 (or 0 to use every available worker)"}
	case j.TopN < 0:
		return &types.ConfigError{Field: "top", Reason: "must be >= 0"}
	case j.Timeout < 0:
		return &types.ConfigError{Field: "timeout", Reason: "must be >= 0"}
	case j.TaskTimeout < 0:
		return &types.ConfigError{Field: "task-timeout", Reason: "must be >= 0"}
	}
	return nil
}

// Node describes how a process joins the cluster.
type Node struct {
	NodeID     string   // unique node identifier
	BindAddr   string   // address for RPC, gossip and raft listeners
	RPCPort    int      // worker RPC port
	GossipPort int      // memberlist port
	RaftPort   int      // raft transport port, coordinators only
	DataDir    string   // raft log store and snapshots
	Join       []string // gossip seeds (host:port)
	Peers      []string // raft peers (nodeID@host:port)
}

// Validate checks the fields every node mode needs.
func (n Node) Validate() error {
	switch {
	case n.NodeID == "":
		return &types.ConfigError{Field: "node-id", Reason: "must not be empty"}
	case n.BindAddr == "":
		return &types.ConfigError{Field: "bind", Reason: "must not be empty"}
	case n.GossipPort <= 0:
		return &types.ConfigError{Field: "gossip-port", Reason: "must be > 0"}
	}
	return nil
}
