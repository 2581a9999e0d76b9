package discovery

import (
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/memberlist"
	jsoniter "github.com/json-iterator/go"

	"DistWordFreq/internal/logger"
)

// Role tells peers what a node does.
type Role string

const (
	RoleWorker      Role = "worker"
	RoleCoordinator Role = "coordinator"
)

// NodeMeta is gossiped with every member.
type NodeMeta struct {
	Role    Role   `json:"role"`
	RPCAddr string `json:"rpc,omitempty"`
}

// EventDelegate implements memberlist.EventDelegate for handling membership changes
type EventDelegate struct {
	discovery *NodeDiscovery
}

func (ed *EventDelegate) NotifyJoin(node *memberlist.Node) {
	ed.discovery.handleNodeJoin(node)
}

func (ed *EventDelegate) NotifyLeave(node *memberlist.Node) {
	ed.discovery.handleNodeLeave(node)
}

func (ed *EventDelegate) NotifyUpdate(node *memberlist.Node) {
	ed.discovery.handleNodeUpdate(node)
}

// metaDelegate publishes the local NodeMeta. Only NodeMeta is used.
type metaDelegate struct {
	meta []byte
}

func (d *metaDelegate) NodeMeta(limit int) []byte {
	if len(d.meta) > limit {
		return nil
	}
	return d.meta
}

func (d *metaDelegate) NotifyMsg([]byte)                           {}
func (d *metaDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (d *metaDelegate) LocalState(join bool) []byte                { return nil }
func (d *metaDelegate) MergeRemoteState(buf []byte, join bool)     {}

// NodeDiscovery uses memberlist for automatic worker discovery and health tracking
type NodeDiscovery struct {
	memberlist *memberlist.Memberlist
	logger     *logger.Logger
	mu         sync.RWMutex

	onNodeLeave func(nodeID string, meta NodeMeta)

	members     map[string]NodeMeta // nodeID -> meta
	localNodeID string
}

// Config for node discovery
type Config struct {
	NodeID       string   // Unique node identifier
	LocalAddress string   // Address to bind to
	LocalPort    int      // Port to bind to
	JoinAddrs    []string // Addresses to join cluster (format: "host:port")
	Role         Role
	RPCAddr      string // worker RPC address advertised to coordinators
}

// NewNodeDiscovery creates a new node discovery service
func NewNodeDiscovery(cfg Config, lg *logger.Logger) (*NodeDiscovery, error) {
	if lg == nil {
		lg = logger.Discard()
	}
	lg.Info("Initializing node discovery: node_id=%s addr=%s:%d role=%s", cfg.NodeID, cfg.LocalAddress, cfg.LocalPort, cfg.Role)

	meta, err := jsoniter.Marshal(NodeMeta{Role: cfg.Role, RPCAddr: cfg.RPCAddr})
	if err != nil {
		return nil, fmt.Errorf("failed to encode node meta: %w", err)
	}

	nd := &NodeDiscovery{
		logger:      lg,
		localNodeID: cfg.NodeID,
		members:     make(map[string]NodeMeta),
	}

	mlConfig := memberlist.DefaultLocalConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindPort = cfg.LocalPort
	mlConfig.AdvertisePort = cfg.LocalPort
	mlConfig.BindAddr = cfg.LocalAddress
	mlConfig.RetransmitMult = 3
	mlConfig.ProbeInterval = 1 * time.Second
	mlConfig.ProbeTimeout = 500 * time.Millisecond
	mlConfig.GossipInterval = 200 * time.Millisecond
	mlConfig.GossipNodes = 3
	mlConfig.Events = &EventDelegate{discovery: nd}
	mlConfig.Delegate = &metaDelegate{meta: meta}
	mlConfig.LogOutput = io.Discard

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		lg.Error("Failed to create memberlist: %v", err)
		return nil, fmt.Errorf("failed to create memberlist: %w", err)
	}
	nd.memberlist = ml

	if len(cfg.JoinAddrs) > 0 {
		_, err := ml.Join(cfg.JoinAddrs)
		if err != nil {
			lg.Warn("Failed to join cluster: %v (continuing as single node)", err)
		} else {
			lg.Info("Successfully joined cluster with %d nodes", ml.NumMembers())
		}
	}

	return nd, nil
}

// WorkerAddresses returns the RPC addresses of live workers, sorted so that
// identical membership yields identical partition placement.
func (nd *NodeDiscovery) WorkerAddresses() []string {
	nd.mu.RLock()
	defer nd.mu.RUnlock()

	var addrs []string
	for _, m := range nd.members {
		if m.Role == RoleWorker && m.RPCAddr != "" {
			addrs = append(addrs, m.RPCAddr)
		}
	}
	sort.Strings(addrs)
	return addrs
}

// GetMembers returns all discovered nodes
func (nd *NodeDiscovery) GetMembers() map[string]NodeMeta {
	nd.mu.RLock()
	defer nd.mu.RUnlock()

	result := make(map[string]NodeMeta, len(nd.members))
	for k, v := range nd.members {
		result[k] = v
	}
	return result
}

// RegisterLeaveCallback registers a callback for when nodes leave or are
// declared dead. meta is the last one the node gossiped.
func (nd *NodeDiscovery) RegisterLeaveCallback(callback func(nodeID string, meta NodeMeta)) {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	nd.onNodeLeave = callback
}

func (nd *NodeDiscovery) decodeMeta(node *memberlist.Node) NodeMeta {
	var meta NodeMeta
	if len(node.Meta) == 0 {
		return meta
	}
	if err := jsoniter.Unmarshal(node.Meta, &meta); err != nil {
		nd.logger.Warn("Ignoring bad node meta: node_id=%s err=%v", node.Name, err)
	}
	return meta
}

// handleNodeJoin processes a node join event
func (nd *NodeDiscovery) handleNodeJoin(node *memberlist.Node) {
	meta := nd.decodeMeta(node)

	nd.mu.Lock()
	nd.members[node.Name] = meta
	nd.mu.Unlock()

	address := net.JoinHostPort(node.Addr.String(), fmt.Sprintf("%d", node.Port))
	nd.logger.Info("Node joined: node_id=%s address=%s role=%s rpc=%s", node.Name, address, meta.Role, meta.RPCAddr)
}

// handleNodeLeave processes a node leave event
func (nd *NodeDiscovery) handleNodeLeave(node *memberlist.Node) {
	nd.mu.Lock()
	meta, ok := nd.members[node.Name]
	if !ok {
		meta = nd.decodeMeta(node)
	}
	delete(nd.members, node.Name)
	callback := nd.onNodeLeave
	nd.mu.Unlock()

	nd.logger.Info("Node left: node_id=%s role=%s", node.Name, meta.Role)

	if callback != nil {
		callback(node.Name, meta)
	}
}

// handleNodeUpdate processes a node update event (e.g., metadata change)
func (nd *NodeDiscovery) handleNodeUpdate(node *memberlist.Node) {
	meta := nd.decodeMeta(node)

	nd.mu.Lock()
	nd.members[node.Name] = meta
	nd.mu.Unlock()

	nd.logger.Debug("Node updated: node_id=%s rpc=%s", node.Name, meta.RPCAddr)
}

// NumMembers returns the number of known cluster members
func (nd *NodeDiscovery) NumMembers() int {
	nd.mu.RLock()
	defer nd.mu.RUnlock()
	return len(nd.members)
}

// WaitForWorkers blocks until at least n workers are known or timeout elapses.
func (nd *NodeDiscovery) WaitForWorkers(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(nd.WorkerAddresses()) >= n {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("only %d of %d workers discovered within %s", len(nd.WorkerAddresses()), n, timeout)
}

// Leave gracefully leaves the cluster
func (nd *NodeDiscovery) Leave(timeout time.Duration) error {
	return nd.memberlist.Leave(timeout)
}

// Shutdown shuts down the discovery service
func (nd *NodeDiscovery) Shutdown() error {
	return nd.memberlist.Shutdown()
}
