package pool

import (
	"github.com/kafkaflow/asyncproc/event"
	"github.com/kafkaflow/asyncproc/queue"
	"github.com/kafkaflow/asyncproc/routing"
)

// Task is everything a worker needs to run one event's user callback: the
// event itself, the processor-instance's router (for installing the
// worker-local delegate) and finalizing sink, and the set of async-wrapped
// stores the callback may open.
//
// Task values are recycled through a Dynamic pool (see NewTaskPool) to
// avoid allocating one per dispatched event. recycle, when non-nil,
// identifies the pool a Task was checked out from; ExecuteTask returns it
// there once the task has been fully handled, whichever of the
// synchronous or WorkerPool-dispatched paths ran it.
type Task[K comparable] struct {
	Event  *event.AsyncEvent[K]
	Router *routing.ContextRouter[K]
	Sink   *queue.FinalizingQueue[K]
	Stores map[string]routing.Store

	recycle Pool
}

func (t *Task[K]) reset() {
	t.Event = nil
	t.Router = nil
	t.Sink = nil
	t.Stores = nil
	t.recycle = nil
}

// NewTaskPool returns a Dynamic pool of *Task[K] values. Obtain tasks via
// GetTask rather than calling Get directly, so the returned Task knows how
// to recycle itself.
func NewTaskPool[K comparable]() Pool {
	return NewDynamic(func() interface{} { return new(Task[K]) })
}

// GetTask checks out a *Task[K] from p and tags it so ExecuteTask returns
// it to p once the task completes.
func GetTask[K comparable](p Pool) *Task[K] {
	t := p.Get().(*Task[K])
	t.recycle = p
	return t
}
