package analysis

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration. They mirror the RunStatus values.
const (
	statePending            = "pending"
	stateRunning            = "running"
	stateSucceeded          = "succeeded"
	statePartiallySucceeded = "partially_succeeded"
	stateFailed             = "failed"
)

func init() {
	stateMap := map[string]RunStatus{
		statePending:            RunPending,
		stateRunning:            RunRunning,
		stateSucceeded:          RunSucceeded,
		statePartiallySucceeded: RunPartiallySucceeded,
		stateFailed:             RunFailed,
	}
	for fsmState, status := range stateMap {
		if fsmState != string(status) {
			panic(fmt.Sprintf("FSM state %q does not match RunStatus %q - constants are out of sync", fsmState, status))
		}
	}
}

// RunContext carries state data for the run machine.
type RunContext struct {
	RunID string
}

// RunStateMachine guards the lifecycle of a single run.
type RunStateMachine struct {
	interpreter *statekit.Interpreter[RunContext]
}

// NewRunStateMachine builds a machine positioned at initial.
func NewRunStateMachine(initial RunStatus, runID string) (*RunStateMachine, error) {
	builder := statekit.NewMachine[RunContext]("run-machine").
		WithInitial(statekit.StateID(initial)).
		WithContext(RunContext{RunID: runID})

	builder.State(statePending).
		On(EventStart).Target(stateRunning).
		On(EventFail).Target(stateFailed).
		Done()

	builder.State(stateRunning).
		On(EventSucceed).Target(stateSucceeded).
		On(EventDegrade).Target(statePartiallySucceeded).
		On(EventFail).Target(stateFailed).
		Done()

	builder.State(stateSucceeded).Done()
	builder.State(statePartiallySucceeded).Done()
	builder.State(stateFailed).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build run state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &RunStateMachine{interpreter: interpreter}, nil
}

// Transition fires event and returns an error when the status did not change.
func (sm *RunStateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if sm.Current() != before {
		return nil
	}
	return fmt.Errorf("the event '%s' is not allowed while the run is '%s'", event, before)
}

// Current returns the current status.
func (sm *RunStateMachine) Current() RunStatus {
	return RunStatus(sm.interpreter.State().Value)
}
