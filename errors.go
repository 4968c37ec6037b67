package asyncproc

import (
	"errors"
	"fmt"
)

// Kind classifies the failure behind an Error.
type Kind int

const (
	// KindProgramming covers disallowed state transitions, mismatched
	// store-name sets, init-after-init, a missing tick registration: always
	// fatal to the processor instance.
	KindProgramming Kind = iota
	// KindHostMisuse covers calling get_state_store outside init, or
	// forwarding to an unknown child: reported synchronously to the
	// offending call, not fatal.
	KindHostMisuse
	// KindUserCallback covers an exception or panic inside the user's
	// process callback, captured by the worker pool.
	KindUserCallback
	// KindHostSideEffect covers a failure replaying a forward or store
	// write during finalization; propagated to the host (the offset
	// commit will not succeed).
	KindHostSideEffect
	// KindInterruption covers an interrupted flush_and_await: fatal, since
	// the processor can no longer guarantee its pre-commit contract.
	KindInterruption
)

func (k Kind) String() string {
	switch k {
	case KindProgramming:
		return "programming"
	case KindHostMisuse:
		return "host_misuse"
	case KindUserCallback:
		return "user_callback"
	case KindHostSideEffect:
		return "host_side_effect"
	case KindInterruption:
		return "interruption"
	default:
		return "unknown"
	}
}

// Error is the taxonomy-tagged error type surfaced by this package. It wraps
// an underlying cause and never loses it (errors.Unwrap returns Cause).
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("asyncproc: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// TaskError correlates an Error with the key and partition of the event
// that produced it, mirroring the teacher's TaskMetaError correlation
// idiom (error_tagging.go: ExtractTaskID/ExtractTaskIndex) adapted from a
// task-index correlation to a record-key/partition one.
type TaskError struct {
	Err       *Error
	Key       any
	Partition int32
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s (key=%v partition=%d)", e.Err.Error(), e.Key, e.Partition)
}

func (e *TaskError) Unwrap() error { return e.Err }

// wrapCallbackFailure normalizes a failure captured on an event into a
// Kind-tagged *Error: an already-tagged cause (e.g. a host-side-effect
// failure from a failed finalization write) keeps its own Kind, anything
// else (a recovered panic, a plain error from user code) is tagged
// KindUserCallback.
func wrapCallbackFailure(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(KindUserCallback, err)
}

// ExtractTaskKey reports the key carried by err, if any layer of its chain
// is a *TaskError.
func ExtractTaskKey(err error) (key any, ok bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Key, true
	}
	return nil, false
}

// Sentinel errors for conditions that don't need per-call context.
var (
	// ErrClosed is returned by operations attempted after Close.
	ErrClosed = errors.New("asyncproc: processor closed")
	// ErrNotInitialized is returned by process() called before init().
	ErrNotInitialized = errors.New("asyncproc: process called before init")
	// ErrAlreadyInitialized is returned by a second call to init().
	ErrAlreadyInitialized = errors.New("asyncproc: init called twice")
	// ErrStoreMismatch is returned when the stores opened during init don't
	// match those declared to the supplier.
	ErrStoreMismatch = errors.New("asyncproc: opened store set does not match declared stores")
)
