// Package event defines the lifecycle token (AsyncEvent) that flows through
// the scheduling, worker and finalizing stages of an async processor
// pipeline, along with the host-metadata snapshot and intercepted side
// effects it carries.
package event

import "fmt"

// State is the lifecycle stage of an AsyncEvent. Transitions are monotonic:
// CREATED -> TO_PROCESS -> PROCESSING -> TO_FINALIZE -> FINALIZING -> DONE.
type State int

const (
	Created State = iota
	ToProcess
	Processing
	ToFinalize
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case ToProcess:
		return "TO_PROCESS"
	case Processing:
		return "PROCESSING"
	case ToFinalize:
		return "TO_FINALIZE"
	case Finalizing:
		return "FINALIZING"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// allowedNext maps a state to the single state it may advance to. The
// pipeline never branches or skips a stage.
var allowedNext = map[State]State{
	Created:    ToProcess,
	ToProcess:  Processing,
	Processing: ToFinalize,
	ToFinalize: Finalizing,
	Finalizing: Done,
}

// ErrInvalidTransition is a programming error: some caller attempted to move
// an event to a state that isn't its immediate successor. Transition only
// reports it and leaves the state unchanged. pool.ExecuteTask records it as
// the event's failure; DriverCoordinator logs the ones returned by its own
// transitions and carries on.
type ErrInvalidTransition struct {
	From, To State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("event: invalid state transition %s -> %s", e.From, e.To)
}
