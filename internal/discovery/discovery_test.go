package discovery

import (
	"reflect"
	"testing"
	"time"
)

func TestWorkerAddressesFromGossip(t *testing.T) {
	worker, err := NewNodeDiscovery(Config{
		NodeID:       "worker-1",
		LocalAddress: "127.0.0.1",
		LocalPort:    17946,
		Role:         RoleWorker,
		RPCAddr:      "127.0.0.1:9101",
	}, nil)
	if err != nil {
		t.Fatalf("Failed to start worker discovery: %v", err)
	}
	defer worker.Shutdown()

	coord, err := NewNodeDiscovery(Config{
		NodeID:       "coordinator-1",
		LocalAddress: "127.0.0.1",
		LocalPort:    17947,
		JoinAddrs:    []string{"127.0.0.1:17946"},
		Role:         RoleCoordinator,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to start coordinator discovery: %v", err)
	}
	defer coord.Shutdown()

	if err := coord.WaitForWorkers(1, 5*time.Second); err != nil {
		t.Fatalf("Worker not discovered: %v", err)
	}

	if got := coord.WorkerAddresses(); !reflect.DeepEqual(got, []string{"127.0.0.1:9101"}) {
		t.Fatalf("WorkerAddresses() = %v", got)
	}
	if coord.NumMembers() != 2 {
		t.Fatalf("Expected 2 members, got %d", coord.NumMembers())
	}

	meta := coord.GetMembers()["coordinator-1"]
	if meta.Role != RoleCoordinator || meta.RPCAddr != "" {
		t.Fatalf("Unexpected local meta: %+v", meta)
	}
}

func TestWaitForWorkersTimeout(t *testing.T) {
	nd, err := NewNodeDiscovery(Config{
		NodeID:       "coordinator-solo",
		LocalAddress: "127.0.0.1",
		LocalPort:    17948,
		Role:         RoleCoordinator,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to start discovery: %v", err)
	}
	defer nd.Shutdown()

	if err := nd.WaitForWorkers(1, 300*time.Millisecond); err == nil {
		t.Fatalf("Expected timeout with no workers")
	}
}

func TestLeaveCallbackCarriesMeta(t *testing.T) {
	coord, err := NewNodeDiscovery(Config{
		NodeID:       "coordinator-2",
		LocalAddress: "127.0.0.1",
		LocalPort:    17949,
		Role:         RoleCoordinator,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to start coordinator discovery: %v", err)
	}
	defer coord.Shutdown()

	left := make(chan NodeMeta, 1)
	coord.RegisterLeaveCallback(func(nodeID string, meta NodeMeta) {
		if nodeID == "worker-2" {
			left <- meta
		}
	})

	worker, err := NewNodeDiscovery(Config{
		NodeID:       "worker-2",
		LocalAddress: "127.0.0.1",
		LocalPort:    17950,
		JoinAddrs:    []string{"127.0.0.1:17949"},
		Role:         RoleWorker,
		RPCAddr:      "127.0.0.1:9102",
	}, nil)
	if err != nil {
		t.Fatalf("Failed to start worker discovery: %v", err)
	}
	defer worker.Shutdown()

	if err := coord.WaitForWorkers(1, 5*time.Second); err != nil {
		t.Fatalf("Worker not discovered: %v", err)
	}
	if err := worker.Leave(time.Second); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	select {
	case meta := <-left:
		if meta.Role != RoleWorker || meta.RPCAddr != "127.0.0.1:9102" {
			t.Fatalf("Unexpected meta on leave: %+v", meta)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Leave callback not called")
	}
	if len(coord.WorkerAddresses()) != 0 {
		t.Fatalf("Expected no workers after leave, got %v", coord.WorkerAddresses())
	}
}
