package transport

// ServiceName is the net/rpc service name workers register.
const ServiceName = "WordCount"

// PrepareArgs ships the job vocabulary to a worker once per job.
type PrepareArgs struct {
	JobID           string
	Vocabulary      []string
	CaseInsensitive bool
}

type PrepareReply struct {
	WorkerID string
	Words    int
}

// CountArgs asks a worker to run the Worker Task on one partition.
type CountArgs struct {
	JobID     string
	Partition int
	Files     []string
	// Deadline in unix nanoseconds, 0 for none.
	Deadline int64
}

// CountReply carries the encoded partial result. TimedOut is set instead
// of a payload when the deadline fired on the worker.
type CountReply struct {
	From     string
	Payload  []byte
	TimedOut bool
}

type ReleaseArgs struct {
	JobID string
}

type ReleaseReply struct {
	Released bool
}
