package types

// JobState is a step of the coordinator's job lifecycle.
type JobState string

const (
	StateInit            JobState = "init"
	StateVocabLoaded     JobState = "vocab_loaded"
	StatePartitioned     JobState = "partitioned"
	StateDispatched      JobState = "dispatched"
	StateCollecting      JobState = "collecting"
	StateMerged          JobState = "merged"
	StateRanked          JobState = "ranked"
	StateDone            JobState = "done"
	StateVocabLoadFailed JobState = "vocab_load_failed"
	StatePartialFailure  JobState = "partial_failure"
	StateCancelled       JobState = "cancelled"
	StateConfigFailed    JobState = "config_failed"
)

var nextState = map[JobState]JobState{
	StateInit:        StateVocabLoaded,
	StateVocabLoaded: StatePartitioned,
	StatePartitioned: StateDispatched,
	StateDispatched:  StateCollecting,
	StateCollecting:  StateMerged,
	StateMerged:      StateRanked,
	StateRanked:      StateDone,
}

// CanTransition reports whether to is a legal successor of from.
// The happy path is strictly sequential. PartialFailure sits between
// Collecting and Merged when some inputs were dropped.
func CanTransition(from, to JobState) bool {
	if nextState[from] == to {
		return true
	}
	switch to {
	case StateVocabLoadFailed:
		return from == StateInit
	case StateConfigFailed:
		return from == StateInit || from == StateVocabLoaded || from == StatePartitioned
	case StatePartialFailure:
		return from == StateCollecting
	case StateMerged:
		return from == StatePartialFailure
	case StateCancelled:
		return !from.Terminal()
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	switch s {
	case StateDone, StateVocabLoadFailed, StateCancelled, StateConfigFailed:
		return true
	}
	return false
}
