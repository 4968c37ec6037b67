package pool

import "sync"

// NewDynamic is an unbounded, GC-reclaimable recycling pool. It is a wrapper
// around sync.Pool, used (via NewTaskPool) by DriverCoordinator to recycle
// the per-task scratch struct instead of allocating one per dispatched
// event.
func NewDynamic(newFn func() interface{}) Pool {
	return &sync.Pool{New: newFn}
}
