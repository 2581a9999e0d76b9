package transport

import (
	"context"
	"errors"
	"fmt"
	"net/rpc"
	"sync"
	"time"

	"DistWordFreq/internal/coordinator"
	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/mapreduce"
	"DistWordFreq/internal/types"
)

// Membership lists the RPC addresses of live workers.
type Membership interface {
	WorkerAddresses() []string
}

// StaticMembers is a fixed worker list.
type StaticMembers []string

func (s StaticMembers) WorkerAddresses() []string {
	return append([]string(nil), s...)
}

// RemoteContext dispatches partitions to RPC workers. Partition i goes to
// worker i mod len(workers), or to the next live worker once that one is
// gone. The vocabulary is shipped once per job.
type RemoteContext struct {
	members        Membership
	dialTimeout    time.Duration
	releaseTimeout time.Duration
	logger         *logger.Logger

	mu      sync.Mutex
	plan    coordinator.Plan
	addrs   []string
	clients []*rpc.Client
	dead    []bool
	engine  *mapreduce.Engine
}

func NewRemoteContext(members Membership, lg *logger.Logger) *RemoteContext {
	if lg == nil {
		lg = logger.Discard()
	}
	return &RemoteContext{
		members:        members,
		dialTimeout:    5 * time.Second,
		releaseTimeout: 2 * time.Second,
		logger:         lg,
	}
}

func (r *RemoteContext) Workers() int {
	return len(r.members.WorkerAddresses())
}

// Start dials every known worker and prepares it for plan.
func (r *RemoteContext) Start(ctx context.Context, plan coordinator.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		return fmt.Errorf("execution context already started")
	}

	addrs := r.members.WorkerAddresses()
	if len(addrs) == 0 {
		return &types.ConfigError{Field: "workers", Reason: "no workers available"}
	}

	args := &PrepareArgs{
		JobID:           plan.JobID,
		Vocabulary:      plan.Vocabulary.Words(),
		CaseInsensitive: plan.Normalizer.CaseInsensitive,
	}

	var clients []*rpc.Client
	var live []string
	for _, addr := range addrs {
		client, err := dial(ctx, addr, r.dialTimeout)
		if err != nil {
			r.logger.Warn("Skipping unreachable worker: addr=%s err=%v", addr, err)
			continue
		}

		var reply PrepareReply
		prepCtx, cancel := context.WithTimeout(ctx, r.dialTimeout)
		err = call(prepCtx, client, ServiceName+".Prepare", args, &reply)
		cancel()
		if err != nil {
			r.logger.Warn("Skipping worker that failed to prepare: addr=%s err=%v", addr, err)
			client.Close()
			continue
		}
		r.logger.Debug("Worker prepared: addr=%s worker_id=%s words=%d", addr, reply.WorkerID, reply.Words)
		clients = append(clients, client)
		live = append(live, addr)
	}
	if len(clients) == 0 {
		return fmt.Errorf("no worker accepted job %s", plan.JobID)
	}

	engine := mapreduce.NewEngine(max(plan.Workers, 1), r.logger)
	engine.SetTaskTimeout(plan.TaskTimeout)
	engine.SetJobTimeout(plan.JobTimeout)

	r.plan = plan
	r.addrs = live
	r.clients = clients
	r.dead = make([]bool, len(clients))
	r.engine = engine
	r.logger.Info("Remote execution context started: job_id=%s workers=%d", plan.JobID, len(clients))
	return nil
}

func (r *RemoteContext) Execute(ctx context.Context, parts []types.Partition) ([]mapreduce.Outcome, error) {
	r.mu.Lock()
	engine := r.engine
	r.mu.Unlock()

	if engine == nil {
		return nil, fmt.Errorf("execution context not started")
	}
	return engine.Execute(ctx, parts, r.task)
}

// WorkerLeft stops dispatching to the worker serving addr. Partitions
// routed to it move to the next live worker on their next attempt.
func (r *RemoteContext) WorkerLeft(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.addrs {
		if a == addr && !r.dead[i] {
			r.dead[i] = true
			r.logger.Warn("Worker left mid-job: addr=%s job_id=%s", addr, r.plan.JobID)
		}
	}
}

// pick returns the live worker for partition, or false if none is left.
func (r *RemoteContext) pick(partition int) (client *rpc.Client, addr, jobID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.clients)
	for i := 0; i < n; i++ {
		idx := (partition + i) % n
		if !r.dead[idx] {
			return r.clients[idx], r.addrs[idx], r.plan.JobID, true
		}
	}
	return nil, "", "", false
}

func (r *RemoteContext) task(ctx context.Context, p types.Partition) (types.PartialResult, error) {
	client, addr, jobID, ok := r.pick(p.Index)
	if !ok {
		return types.PartialResult{}, fmt.Errorf("no live worker for partition %d", p.Index)
	}

	args := &CountArgs{JobID: jobID, Partition: p.Index, Files: p.Files}
	if dl, ok := ctx.Deadline(); ok {
		args.Deadline = dl.UnixNano()
	}

	var reply CountReply
	if err := call(ctx, client, ServiceName+".Count", args, &reply); err != nil {
		var serverErr rpc.ServerError
		if ctx.Err() == nil && !errors.As(err, &serverErr) {
			// The connection itself is broken.
			r.WorkerLeft(addr)
		}
		return types.PartialResult{}, fmt.Errorf("worker %s: %w", addr, err)
	}
	if reply.TimedOut {
		return types.PartialResult{}, &types.WorkerTimeout{Partition: p.Index}
	}

	res, err := DecodePartial(reply.Payload)
	if err != nil {
		return types.PartialResult{}, fmt.Errorf("failed to decode reply from %s: %w", addr, err)
	}
	res.Partition = p.Index
	return res, nil
}

// Stop releases the job on every worker and closes the connections. Each
// release is bounded by releaseTimeout so an unresponsive worker cannot
// hold the job open.
func (r *RemoteContext) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.releaseTimeout)
	defer cancel()

	jobID := r.plan.JobID
	var wg sync.WaitGroup
	for i, client := range r.clients {
		if r.dead[i] {
			continue
		}
		wg.Add(1)
		go func(addr string, client *rpc.Client) {
			defer wg.Done()
			var reply ReleaseReply
			if err := call(ctx, client, ServiceName+".Release", &ReleaseArgs{JobID: jobID}, &reply); err != nil {
				r.logger.Warn("Release failed: addr=%s err=%v", addr, err)
			}
		}(r.addrs[i], client)
	}
	wg.Wait()

	var errs []error
	for _, client := range r.clients {
		if err := client.Close(); err != nil && !errors.Is(err, rpc.ErrShutdown) {
			errs = append(errs, err)
		}
	}
	r.clients = nil
	r.addrs = nil
	r.dead = nil
	r.engine = nil
	return errors.Join(errs...)
}
