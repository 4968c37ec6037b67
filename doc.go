// Package asyncproc provides a per-key ordered, asynchronously executed
// processor runtime for host frameworks that hand records to a single
// driver thread one at a time (stream processors, ordered queue consumers,
// anything built around a poll-process-commit loop).
//
// A DriverCoordinator accepts records via Process, which assigns each one
// an AsyncEvent and offers it to a SchedulingQueue that enforces FIFO order
// per key while allowing independent keys to run concurrently on a
// WorkerPool. Once a worker's callback returns (or panics), the event moves
// to a FinalizingQueue; only the driver thread ever replays the callback's
// forwards and state-store writes, in the order the callback issued them,
// under that event's original record context.
//
// Constructors
//   - New(host, registry, provider, log, declaredStoreNames, opts...):
//     primary constructor, configured via functional Options. Pass a
//     shared *pool.Registry to pool worker threads across every
//     DriverCoordinator with the same Config.DriverID, or nil to keep a
//     coordinator's worker pool private.
//   - ConfigFromHostProperties(props): bridges a host's flat string-keyed
//     configuration into a Config for hosts that have no typed options
//     layer of their own.
//
// Concurrency contract
// DriverCoordinator does no locking against itself: Init, Process,
// FlushAndAwait and Close must all be called from the same single driver
// thread. The only legal cross-thread conduits are the FinalizingQueue and
// the WorkerPool's task channel.
//
// Errors
// Every error returned across this package's API is either a sentinel
// (ErrClosed, ErrNotInitialized, ...) or a *Error carrying a Kind that
// classifies whether the fault is a programming error, host misuse, a
// user-callback failure, a host-side-effect failure, or an interruption.
// *TaskError additionally correlates a failure with the key and partition
// of the event that produced it. Once a user-callback failure occurs,
// DriverCoordinator.Failure reports it and the coordinator stops admitting
// or dispatching further events.
package asyncproc
