package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"DistWordFreq/internal/config"
	"DistWordFreq/internal/coordinator"
	"DistWordFreq/internal/discovery"
	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/raft"
	"DistWordFreq/internal/source"
	"DistWordFreq/internal/transport"
	"DistWordFreq/internal/types"
)

func main() {
	job := config.DefaultJob()
	node := config.Node{}

	mode := flag.String("mode", "local", "Mode: 'local' runs an in-process worker pool, 'worker' serves counting over RPC, 'coordinator' dispatches to discovered workers")
	logLevel := flag.String("log-level", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	fsKind := flag.String("source", "local", "Input source: 'local' or 'hdfs'")
	hdfsAddr := flag.String("hdfs-addr", "localhost:9000", "HDFS namenode address when -source=hdfs")
	minWorkers := flag.Int("min-workers", 1, "Workers to wait for before dispatching in coordinator mode")
	discoverWait := flag.Duration("discover-timeout", 10*time.Second, "How long the coordinator waits for workers")
	join := flag.String("join", "", "Comma-separated gossip seeds (host:port)")
	peers := flag.String("peers", "", "Comma-separated raft peers (nodeID@host:port)")

	flag.StringVar(&job.Dir, "dir", "", "Directory holding the input files")
	flag.StringVar(&job.Reference, "ref", job.Reference, "Reference file name inside -dir")
	flag.StringVar(&job.Extension, "ext", job.Extension, "Only files with this extension are counted")
	flag.IntVar(&job.Workers, "workers", job.Workers, "Number of partitions (0 = one per available worker)")
	flag.IntVar(&job.TopN, "top", job.TopN, "Number of ranked words to report")
	flag.BoolVar(&job.CaseInsensitive, "ignore-case", job.CaseInsensitive, "Fold case before matching")
	flag.DurationVar(&job.Timeout, "timeout", 0, "Bound on collecting all partitions (0 = none)")
	flag.DurationVar(&job.TaskTimeout, "task-timeout", 0, "Bound on a single partition (0 = none)")

	flag.StringVar(&node.NodeID, "node-id", "", "Unique node identifier (random when empty)")
	flag.StringVar(&node.BindAddr, "bind", "127.0.0.1", "Address for RPC, gossip and raft listeners")
	flag.IntVar(&node.RPCPort, "rpc-port", 9101, "Worker RPC port")
	flag.IntVar(&node.GossipPort, "gossip-port", 7946, "Memberlist gossip port")
	flag.IntVar(&node.RaftPort, "raft-port", 9001, "Raft port (coordinator mode)")
	flag.StringVar(&node.DataDir, "data-dir", "", "Raft data directory (coordinator mode, default /tmp/dwf-<node-id>)")
	flag.Parse()

	lg := logger.New(*logLevel)

	if node.NodeID == "" {
		node.NodeID = *mode + "-" + uuid.New().String()[:8]
	}
	if node.DataDir == "" {
		node.DataDir = "/tmp/dwf-" + node.NodeID
	}
	node.Join = splitList(*join)
	node.Peers = splitList(*peers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := openSource(*fsKind, *hdfsAddr)
	if err != nil {
		lg.Error("Failed to open source: %v", err)
		os.Exit(1)
	}
	defer closeSrc()

	switch *mode {
	case "local":
		err = runLocal(ctx, job, src, lg)
	case "worker":
		err = runWorker(ctx, node, src, lg)
	case "coordinator":
		err = runCoordinator(ctx, job, node, src, *minWorkers, *discoverWait, lg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(1)
	}

	if err != nil {
		lg.Error("%v", err)
		if errors.Is(err, types.ErrConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func openSource(kind, hdfsAddr string) (source.Source, func(), error) {
	switch kind {
	case "local":
		return source.NewLocal(), func() {}, nil
	case "hdfs":
		h, err := source.NewHDFS(hdfsAddr)
		if err != nil {
			return nil, nil, err
		}
		return h, func() { h.Close() }, nil
	default:
		return nil, nil, &types.ConfigError{Field: "source", Reason: "must be 'local' or 'hdfs'"}
	}
}

func runLocal(ctx context.Context, job config.Job, src source.Source, lg *logger.Logger) error {
	parallel := job.Workers
	if parallel == 0 {
		parallel = 4
	}
	c := coordinator.New(src, coordinator.NewLocalContext(src, parallel, lg), lg)
	return runJob(ctx, c, job)
}

func runWorker(ctx context.Context, node config.Node, src source.Source, lg *logger.Logger) error {
	if err := node.Validate(); err != nil {
		return err
	}

	server, err := transport.NewServer(transport.ServerOpts{
		ID:   node.NodeID,
		Addr: node.BindAddr + ":" + strconv.Itoa(node.RPCPort),
	}, src, lg)
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Close()

	disc, err := discovery.NewNodeDiscovery(discovery.Config{
		NodeID:       node.NodeID,
		LocalAddress: node.BindAddr,
		LocalPort:    node.GossipPort,
		JoinAddrs:    node.Join,
		Role:         discovery.RoleWorker,
		RPCAddr:      server.Addr(),
	}, lg)
	if err != nil {
		return err
	}
	defer disc.Shutdown()

	lg.Info("Worker ready: node_id=%s rpc=%s gossip=%s:%d", node.NodeID, server.Addr(), node.BindAddr, node.GossipPort)
	<-ctx.Done()

	lg.Info("Worker shutting down: node_id=%s", node.NodeID)
	if err := disc.Leave(2 * time.Second); err != nil {
		lg.Warn("Failed to leave cluster: %v", err)
	}
	return nil
}

func runCoordinator(ctx context.Context, job config.Job, node config.Node, src source.Source, minWorkers int, wait time.Duration, lg *logger.Logger) error {
	if err := node.Validate(); err != nil {
		return err
	}

	disc, err := discovery.NewNodeDiscovery(discovery.Config{
		NodeID:       node.NodeID,
		LocalAddress: node.BindAddr,
		LocalPort:    node.GossipPort,
		JoinAddrs:    node.Join,
		Role:         discovery.RoleCoordinator,
	}, lg)
	if err != nil {
		return err
	}
	defer disc.Shutdown()

	cluster, err := raft.NewCluster(raft.Config{
		NodeID:   node.NodeID,
		BindAddr: node.BindAddr,
		BindPort: node.RaftPort,
		DataDir:  node.DataDir,
		Peers:    node.Peers,
	}, lg)
	if err != nil {
		return err
	}
	defer cluster.Close()

	if err := cluster.WaitForLeader(wait); err != nil {
		return err
	}
	if !cluster.IsLeader() {
		lg.Info("Standing by as replica: node_id=%s leader=%s", node.NodeID, cluster.GetLeader())
		<-ctx.Done()
		return nil
	}

	if err := disc.WaitForWorkers(minWorkers, wait); err != nil {
		lg.Warn("Dispatching with fewer workers than requested: %v", err)
	}

	remote := transport.NewRemoteContext(disc, lg)
	disc.RegisterLeaveCallback(func(nodeID string, meta discovery.NodeMeta) {
		if meta.Role == discovery.RoleWorker {
			remote.WorkerLeft(meta.RPCAddr)
		}
	})

	c := coordinator.New(src, remote, lg)
	c.SetJournal(cluster)
	if err := runJob(ctx, c, job); err != nil {
		return err
	}

	stats := cluster.Stats()
	lg.Info("Job recorded in ledger: %s", logger.Fields(map[string]interface{}{
		"state":        stats["state"],
		"commit_index": stats["commit_index"],
		"applied":      stats["applied_index"],
		"peers":        stats["num_peers"],
	}))
	return nil
}

func runJob(ctx context.Context, c *coordinator.Coordinator, job config.Job) error {
	report, err := c.Run(ctx, job)
	if err != nil {
		return err
	}

	fmt.Print(report.Summary())
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
