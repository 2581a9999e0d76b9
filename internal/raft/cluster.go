package raft

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	raft "github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"

	"DistWordFreq/internal/config"
	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/types"
)

// Cluster replicates the job ledger across coordinator replicas
type Cluster struct {
	nodeID        string
	raft          *raft.Raft
	fsm           *FSM
	logStore      *raftboltdb.BoltStore
	stableStore   *raftboltdb.BoltStore
	snapshotStore raft.SnapshotStore
	transport     *raft.NetworkTransport
	logger        *logger.Logger
}

// Config for creating a new cluster
type Config struct {
	NodeID   string   // Unique node identifier
	BindAddr string   // Address to bind Raft transport
	BindPort int      // Port for Raft transport
	DataDir  string   // Directory for log store and snapshots
	Peers    []string // Other voters (nodeID@address:port), empty for a single node
}

// NewCluster creates a new Raft cluster node
func NewCluster(cfg Config, lg *logger.Logger) (*Cluster, error) {
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("NodeID cannot be empty")
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("DataDir cannot be empty")
	}

	if lg == nil {
		lg = logger.Discard()
	}
	lg.Info("Initializing Raft cluster node: node_id=%s bind_addr=%s:%d", cfg.NodeID, cfg.BindAddr, cfg.BindPort)

	servers, err := parsePeers(cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		lg.Error("Failed to create data directory: %v", err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	c := &Cluster{
		nodeID: cfg.NodeID,
		fsm:    NewFSM(lg),
		logger: lg,
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-logs.db"))
	if err != nil {
		lg.Error("Failed to create log store: %v", err)
		return nil, fmt.Errorf("failed to create log store: %w", err)
	}
	c.logStore = logStore

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		logStore.Close()
		lg.Error("Failed to create stable store: %v", err)
		return nil, fmt.Errorf("failed to create stable store: %w", err)
	}
	c.stableStore = stableStore

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 3, os.Stderr)
	if err != nil {
		c.closeStores()
		lg.Error("Failed to create snapshot store: %v", err)
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}
	c.snapshotStore = snapshotStore

	addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.BindPort))
	if err != nil {
		c.closeStores()
		lg.Error("Failed to resolve address: %v", err)
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}

	transport, err := raft.NewTCPTransport(addr.String(), addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		c.closeStores()
		lg.Error("Failed to create transport: %v", err)
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	c.transport = transport

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.HeartbeatTimeout = 200 * time.Millisecond
	raftCfg.ElectionTimeout = 200 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 100 * time.Millisecond
	raftCfg.SnapshotInterval = 2 * time.Second
	raftCfg.SnapshotThreshold = 20
	if lg.Level() > logger.DEBUG {
		raftCfg.LogLevel = "WARN"
	}

	r, err := raft.NewRaft(raftCfg, c.fsm, c.logStore, c.stableStore, c.snapshotStore, transport)
	if err != nil {
		transport.Close()
		c.closeStores()
		lg.Error("Failed to create raft instance: %v", err)
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}
	c.raft = r
	lg.Info("Raft node initialized: node_id=%s", cfg.NodeID)

	f := c.raft.BootstrapCluster(raft.Configuration{Servers: servers})
	switch err := f.Error(); err {
	case nil:
		lg.Info("Cluster bootstrapped: voters=%d", len(servers))
	case raft.ErrCantBootstrap:
		lg.Info("Existing raft state found, skipping bootstrap")
	default:
		c.Close()
		lg.Error("Failed to bootstrap cluster: %v", err)
		return nil, fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	return c, nil
}

// parsePeers builds the voter set: the local node plus every nodeID@host:port peer.
func parsePeers(cfg Config) ([]raft.Server, error) {
	servers := []raft.Server{{
		Suffrage: raft.Voter,
		ID:       raft.ServerID(cfg.NodeID),
		Address:  raft.ServerAddress(fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.BindPort)),
	}}

	for _, p := range cfg.Peers {
		id, addr, ok := strings.Cut(p, "@")
		if !ok || id == "" || addr == "" {
			return nil, fmt.Errorf("invalid peer %q, expected nodeID@host:port", p)
		}
		if id == cfg.NodeID {
			continue
		}
		servers = append(servers, raft.Server{
			Suffrage: raft.Voter,
			ID:       raft.ServerID(id),
			Address:  raft.ServerAddress(addr),
		})
	}
	return servers, nil
}

// IsLeader returns true if this node is the current leader
func (c *Cluster) IsLeader() bool {
	return c.raft.State() == raft.Leader
}

// GetLeader returns the current leader address
func (c *Cluster) GetLeader() string {
	addr, _ := c.raft.LeaderWithID()
	return string(addr)
}

// WaitForLeader waits until a leader is elected
func (c *Cluster) WaitForLeader(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if c.GetLeader() != "" {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("no leader elected within timeout")
}

// apply replicates one ledger mutation. Only the leader may call it.
func (c *Cluster) apply(jobID, op string, data interface{}) error {
	if !c.IsLeader() {
		return fmt.Errorf("not the leader, current leader: %s", c.GetLeader())
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", op, err)
	}

	entry, err := json.Marshal(&LogEntry{
		JobID:     jobID,
		Operation: op,
		Data:      payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	f := c.raft.Apply(entry, 5*time.Second)
	if err := f.Error(); err != nil {
		return fmt.Errorf("failed to apply log: %w", err)
	}
	if resp, ok := f.Response().(error); ok && resp != nil {
		return resp
	}
	return nil
}

// RecordJob registers a new job in the ledger
func (c *Cluster) RecordJob(jobID string, job config.Job) error {
	return c.apply(jobID, OpSubmit, job)
}

// RecordState replicates a lifecycle transition
func (c *Cluster) RecordState(jobID string, state types.JobState) error {
	return c.apply(jobID, OpState, state)
}

// RecordPartial replicates one worker's partial result
func (c *Cluster) RecordPartial(jobID string, res types.PartialResult) error {
	return c.apply(jobID, OpPartial, res)
}

// RecordResult replicates the final report
func (c *Cluster) RecordResult(jobID string, report *types.Report) error {
	return c.apply(jobID, OpResult, report)
}

// Job returns the replicated record of a job
func (c *Cluster) Job(jobID string) (*JobRecord, bool) {
	return c.fsm.Job(jobID)
}

// GetFSM returns the underlying FSM
func (c *Cluster) GetFSM() *FSM {
	return c.fsm
}

// Stats returns the Raft statistics
func (c *Cluster) Stats() map[string]string {
	return c.raft.Stats()
}

// Close closes the Raft node
func (c *Cluster) Close() error {
	f := c.raft.Shutdown()
	if err := f.Error(); err != nil {
		return err
	}

	if err := c.transport.Close(); err != nil {
		return err
	}

	return c.closeStores()
}

func (c *Cluster) closeStores() error {
	if c.logStore != nil {
		if err := c.logStore.Close(); err != nil {
			return err
		}
	}
	if c.stableStore != nil {
		if err := c.stableStore.Close(); err != nil {
			return err
		}
	}
	return nil
}
