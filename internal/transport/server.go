package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"time"

	"DistWordFreq/internal/logger"
	"DistWordFreq/internal/source"
	"DistWordFreq/internal/types"
	"DistWordFreq/internal/vocab"
	"DistWordFreq/internal/wordcount"
)

type ServerOpts struct {
	ID   string
	Addr string // host:port, port 0 picks a free one
}

// Service is the RPC face of a worker. Every exported method is an RPC.
type Service struct {
	id     string
	src    source.Source
	logger *logger.Logger

	mu   sync.RWMutex
	jobs map[string]*preparedJob
}

// preparedJob is a job's counter plus the context every Count of the job
// runs under. Release cancels it.
type preparedJob struct {
	counter *wordcount.Counter
	ctx     context.Context
	cancel  context.CancelFunc
}

// Prepare stores the job vocabulary so later Count calls can reference it.
func (s *Service) Prepare(args *PrepareArgs, reply *PrepareReply) error {
	v := types.NewVocabulary(args.Vocabulary...)
	norm := vocab.Normalizer{CaseInsensitive: args.CaseInsensitive}

	ctx, cancel := context.WithCancel(context.Background())
	job := &preparedJob{
		counter: wordcount.NewCounter(s.src, v, norm, s.logger),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.mu.Lock()
	if prev, ok := s.jobs[args.JobID]; ok {
		prev.cancel()
	}
	s.jobs[args.JobID] = job
	s.mu.Unlock()

	reply.WorkerID = s.id
	reply.Words = v.Len()
	s.logger.Info("Job prepared: worker_id=%s job_id=%s words=%d", s.id, args.JobID, v.Len())
	return nil
}

// Count runs the Worker Task for one partition.
func (s *Service) Count(args *CountArgs, reply *CountReply) error {
	s.mu.RLock()
	job, ok := s.jobs[args.JobID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not prepared on worker %s", args.JobID, s.id)
	}

	ctx := job.ctx
	if args.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, time.Unix(0, args.Deadline))
		defer cancel()
	}

	reply.From = s.id
	res, err := job.counter.Task(ctx, types.Partition{Index: args.Partition, Files: args.Files})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("Partition timed out: worker_id=%s job_id=%s partition=%d", s.id, args.JobID, args.Partition)
			reply.TimedOut = true
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("job %s released on worker %s", args.JobID, s.id)
		}
		return err
	}

	payload, err := EncodePartial(res)
	if err != nil {
		return fmt.Errorf("failed to encode partial result: %w", err)
	}
	reply.Payload = payload
	s.logger.Info("Partition counted: worker_id=%s job_id=%s partition=%d files=%d failed=%d",
		s.id, args.JobID, args.Partition, len(args.Files), len(res.Failures))
	return nil
}

// Release drops the job vocabulary and stops its Count calls still running.
func (s *Service) Release(args *ReleaseArgs, reply *ReleaseReply) error {
	s.mu.Lock()
	job, ok := s.jobs[args.JobID]
	delete(s.jobs, args.JobID)
	s.mu.Unlock()

	if ok {
		job.cancel()
		s.logger.Info("Job released: worker_id=%s job_id=%s", s.id, args.JobID)
	}
	reply.Released = ok
	return nil
}

// Server exposes a Service over TCP.
type Server struct {
	opts     ServerOpts
	service  *Service
	rpc      *rpc.Server
	logger   *logger.Logger
	listener net.Listener

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

func NewServer(opts ServerOpts, src source.Source, lg *logger.Logger) (*Server, error) {
	if lg == nil {
		lg = logger.Discard()
	}
	svc := &Service{
		id:     opts.ID,
		src:    src,
		logger: lg,
		jobs:   make(map[string]*preparedJob),
	}

	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, svc); err != nil {
		return nil, fmt.Errorf("failed to register RPC: %w", err)
	}

	return &Server{
		opts:    opts,
		service: svc,
		rpc:     srv,
		logger:  lg,
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

// Start listens and serves connections in the background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = l
	s.logger.Info("Worker RPC listening: worker_id=%s addr=%s", s.opts.ID, l.Addr())

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			s.logger.Warn("Accept error: %v", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go func() {
			s.rpc.ServeConn(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
