package routing

import (
	"sync"
	"sync/atomic"

	"github.com/kafkaflow/asyncproc/event"
)

// mode is the router's own processing mode: before the first worker
// execution every call routes to the driver delegate; once processing
// begins, resolution consults the per-goroutine worker-delegate map first.
type mode int32

const (
	modeSetup mode = iota
	modeProcessing
)

// ContextRouter is per-processor-instance dispatch that points the user's
// context calls at the driver delegate or at the calling worker's delegate,
// resolved by goroutine identity rather than virtual dispatch. The router
// itself holds no reference back to the driver coordinator — only a lookup
// keyed by thread identity — so the coordinator/router/worker-delegate
// triangle never forms an owning cycle.
type ContextRouter[K comparable] struct {
	driver *driverDelegate

	mu      sync.RWMutex
	workers map[uint64]*workerDelegate[K] // goroutine id -> delegate

	knownChildren map[string]bool // nil or empty: no forward validation

	m mode // atomic; see modeSetup/modeProcessing
}

// NewContextRouter constructs a router in setup mode wrapping host.
func NewContextRouter[K comparable](host HostFacade) *ContextRouter[K] {
	return &ContextRouter[K]{
		driver:  newDriverDelegate(host),
		workers: make(map[uint64]*workerDelegate[K]),
	}
}

// SetKnownChildren declares the complete set of child names a callback may
// forward to by name. A forward naming anything outside this set fails with
// ErrUnknownChild instead of being accepted silently. An empty or nil names
// disables the check.
func (r *ContextRouter[K]) SetKnownChildren(names []string) {
	if len(names) == 0 {
		r.knownChildren = nil
		return
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	r.knownChildren = set
}

// EnterProcessing switches the router to processing mode. Idempotent.
func (r *ContextRouter[K]) EnterProcessing() {
	atomic.StoreInt32((*int32)(&r.m), int32(modeProcessing))
}

// Current resolves the delegate for the calling goroutine: the worker
// delegate installed for this goroutine if one exists and the router is in
// processing mode, otherwise the driver delegate.
func (r *ContextRouter[K]) Current() Delegate {
	if mode(atomic.LoadInt32((*int32)(&r.m))) == modeProcessing {
		if d, ok := r.workerDelegateForCurrentGoroutine(); ok {
			return d
		}
	}
	return r.driver
}

func (r *ContextRouter[K]) workerDelegateForCurrentGoroutine() (*workerDelegate[K], bool) {
	gid := goroutineID()
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.workers[gid]
	return d, ok
}

// InstallWorkerDelegate registers a worker-local delegate for the calling
// goroutine for the duration of one event's user callback, binding the
// given stores for interception. The returned release func must be called,
// typically via defer, once the callback returns, removing the
// goroutine-local entry.
func (r *ContextRouter[K]) InstallWorkerDelegate(ev *event.AsyncEvent[K], stores map[string]Store) (release func()) {
	d := newWorkerDelegate[K](ev, r.knownChildren)
	for name, s := range stores {
		d.BindStore(name, s)
	}
	gid := goroutineID()

	r.mu.Lock()
	r.workers[gid] = d
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.workers, gid)
		r.mu.Unlock()
	}
}

// RestoreRecordContext installs rc as the driver delegate's active record
// context, called by the driver coordinator immediately before replaying
// an event's intercepted side effects.
func (r *ContextRouter[K]) RestoreRecordContext(rc event.RecordContext) {
	r.driver.restoreRecordContext(rc)
}

// Driver returns the driver-thread delegate directly, regardless of mode.
func (r *ContextRouter[K]) Driver() Delegate {
	return r.driver
}
