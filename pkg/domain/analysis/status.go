package analysis

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunPending            RunStatus = "pending"
	RunRunning            RunStatus = "running"
	RunSucceeded          RunStatus = "succeeded"
	RunPartiallySucceeded RunStatus = "partially_succeeded"
	RunFailed             RunStatus = "failed"
)

// Run lifecycle events accepted by RunStateMachine.
const (
	EventStart   = "start"
	EventSucceed = "succeed"
	EventDegrade = "degrade"
	EventFail    = "fail"
)

// validRunTransitions maps currentStatus -> event -> targetStatus.
var validRunTransitions = map[RunStatus]map[string]RunStatus{
	RunPending: {
		EventStart: RunRunning,
		EventFail:  RunFailed,
	},
	RunRunning: {
		EventSucceed: RunSucceeded,
		EventDegrade: RunPartiallySucceeded,
		EventFail:    RunFailed,
	},
}

// IsTerminal returns true once the run can no longer change.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunSucceeded, RunPartiallySucceeded, RunFailed:
		return true
	default:
		return false
	}
}

// IsActive returns true while the run is pending or running.
func (s RunStatus) IsActive() bool {
	return s == RunPending || s == RunRunning
}

// HasDeliverable returns true for statuses whose output is persisted.
func (s RunStatus) HasDeliverable() bool {
	return s == RunSucceeded || s == RunPartiallySucceeded
}

// CanTransitionWith returns true if the event is valid from this status.
func (s RunStatus) CanTransitionWith(event string) bool {
	_, ok := validRunTransitions[s][event]
	return ok
}

func (s RunStatus) String() string {
	return string(s)
}
