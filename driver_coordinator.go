package asyncproc

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kafkaflow/asyncproc/event"
	"github.com/kafkaflow/asyncproc/metrics"
	"github.com/kafkaflow/asyncproc/pool"
	"github.com/kafkaflow/asyncproc/queue"
	"github.com/kafkaflow/asyncproc/routing"
)

// DriverCoordinator is the owner-thread orchestrator of the three-stage
// pipeline: scheduling, worker dispatch, and finalization. Every exported
// method must only ever be invoked from the single driver thread — the
// coordinator does no locking against itself, exactly like the host's own
// driver loop.
type DriverCoordinator[K comparable] struct {
	cfg Config

	host   HostFacade
	router *routing.ContextRouter[K]

	scheduling *queue.SchedulingQueue[K]
	finalizing *queue.FinalizingQueue[K]
	workerPool *pool.WorkerPool[K]   // nil iff cfg.PoolSize == 0 and registry == nil
	registry   *pool.Registry[K]     // non-nil when workerPool is shared across instances
	taskPool   pool.Pool             // recycles *pool.Task[K] values

	// pendingEvents tracks every event offered and not yet DONE.
	// Driver-owned only.
	pendingEvents map[*event.AsyncEvent[K]]struct{}

	// stores are the real, unwrapped host stores declared to the
	// supplier and opened during init, keyed by name.
	stores         map[string]Store
	declaredStores map[string]bool

	log *logrus.Entry

	pendingGauge metrics.UpDownCounter
	finalizeHist metrics.Histogram

	// failure records the first event failure the coordinator has observed:
	// a user-callback failure, or a store write that failed during
	// finalization. Once set, Process refuses to admit further events and
	// drainSchedulingQueue refuses to dispatch any it already holds: the
	// coordinator ceases making forward progress rather than risk
	// delivering a same-key successor after its predecessor failed.
	failure *TaskError

	closed   bool
	initDone bool
}

// New constructs a DriverCoordinator wrapping host, with worker concurrency
// and queue behavior governed by opts. If registry is non-nil, the
// coordinator acquires its worker pool from registry keyed by
// cfg.DriverID instead of constructing a private one, so every
// DriverCoordinator sharing a DriverID on the same registry shares one
// pool; pass nil to keep a coordinator's pool private.
// declaredStoreNames lists every store name the user's topology declares it
// will open; New itself does not open them (that happens in Init, once the
// host hands back the opened set).
func New[K comparable](host HostFacade, registry *pool.Registry[K], provider MetricsProvider, log *logrus.Entry, declaredStoreNames []string, opts ...Option) *DriverCoordinator[K] {
	cfg := buildConfig(opts...)
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}

	declared := make(map[string]bool, len(declaredStoreNames))
	for _, n := range declaredStoreNames {
		declared[n] = true
	}

	d := &DriverCoordinator[K]{
		cfg:            cfg,
		host:           host,
		registry:       registry,
		router:         routing.NewContextRouter[K](host),
		scheduling:     queue.NewSchedulingQueue[K](cfg.MaxEventsPerKey),
		finalizing:     queue.NewFinalizingQueue[K](),
		taskPool:       pool.NewTaskPool[K](),
		pendingEvents:  make(map[*event.AsyncEvent[K]]struct{}),
		stores:         make(map[string]Store),
		declaredStores: declared,
		log:            log,
		pendingGauge:   provider.UpDownCounter("asyncproc_pending_events"),
		finalizeHist:   provider.Histogram("asyncproc_finalize_seconds"),
	}
	switch {
	case registry != nil:
		d.workerPool = registry.Acquire(cfg.DriverID)
	case cfg.PoolSize > 0:
		d.workerPool = pool.NewWorkerPool[K](cfg.PoolSize, pool.Config{Logger: log, Metrics: provider})
	}
	return d
}

// Init must be called by the host once on the driver thread before any
// Process call. openedStores is the set of stores the user's init actually
// opened; it must match declaredStoreNames exactly, or Init fails with a
// KindProgramming *Error.
func (d *DriverCoordinator[K]) Init(openedStores map[string]Store) error {
	if d.initDone {
		return newError(KindProgramming, ErrAlreadyInitialized)
	}
	if len(openedStores) != len(d.declaredStores) {
		return newError(KindProgramming, ErrStoreMismatch)
	}
	for name, s := range openedStores {
		if !d.declaredStores[name] {
			return newError(KindProgramming, ErrStoreMismatch)
		}
		d.stores[name] = s
	}

	d.host.Schedule(d.cfg.FlushInterval, d.onTick)
	d.router.EnterProcessing()
	d.initDone = true
	return nil
}

// DeclareChildren restricts named forwards (Forward calls with hasChild
// true) to the given child names; a forward naming anything outside this
// set fails with an *ErrHostMisuse wrapping ErrUnknownChild instead of being
// accepted silently. Broadcast forwards (hasChild false) are never affected.
// Call once during setup, before Init; an empty or nil names disables the
// check.
func (d *DriverCoordinator[K]) DeclareChildren(names []string) {
	d.router.SetKnownChildren(names)
}

// boundStores returns the real stores a dispatched task's callback is
// allowed to open; ContextRouter.InstallWorkerDelegate wraps each one for
// worker-side interception.
func (d *DriverCoordinator[K]) boundStores() map[string]routing.Store {
	return d.stores
}

// onTick is registered once with the host in Init and fires on the
// configured wall-clock interval, bounding finalization latency when no new
// input record arrives. A no-op after Close stands in for "cancel the
// tick" since HostFacade exposes no cancellation handle of its own.
func (d *DriverCoordinator[K]) onTick() {
	if d.closed {
		return
	}
	d.executeAvailableEvents()
}

// Failure reports the first event failure (user callback or finalization
// store write) the coordinator has observed, if any. Once non-nil, the coordinator has halted further
// dispatch: Process and FlushAndAwait both return this same error from
// then on.
func (d *DriverCoordinator[K]) Failure() error {
	if d.failure == nil {
		return nil
	}
	return d.failure
}

// Process is the offer path. It blocks in the backpressure loop when key's
// per-key depth is saturated — this is the flow-control mechanism.
func (d *DriverCoordinator[K]) Process(key K, partition int32, record any, callback func()) error {
	if d.closed {
		return newError(KindProgramming, ErrClosed)
	}
	if !d.initDone {
		return newError(KindProgramming, ErrNotInitialized)
	}
	if d.failure != nil {
		return d.failure
	}

	rc := d.host.RecordMetadata()
	ev := event.New(key, partition, record, rc, d.host.CurrentStreamTimeMs(), d.host.CurrentSystemTimeMs(), callback)
	ev.ScratchEnabled = d.cfg.ReadYourWrites

	d.pendingEvents[ev] = struct{}{}
	d.pendingGauge.Add(1)

	for d.scheduling.KeyQueueIsFull(key) {
		d.drainSchedulingQueue()
		if d.scheduling.KeyQueueIsFull(key) {
			if err := d.finalizeAtLeastOne(); err != nil {
				return err
			}
		}
	}

	if d.failure != nil {
		// A predecessor failed while this event waited out backpressure.
		// It was never offered to scheduling, so it never entered the
		// pipeline; undo its provisional bookkeeping.
		delete(d.pendingEvents, ev)
		d.pendingGauge.Add(-1)
		return d.failure
	}

	if err := d.scheduling.Offer(ev); err != nil {
		return newError(KindProgramming, err)
	}

	d.executeAvailableEvents()
	return nil
}

// executeAvailableEvents runs one non-blocking pass: drain finalizing
// first (it may unblock keys and enlarge the processable set), then drain
// scheduling to dispatch the newly processable events in one shot.
func (d *DriverCoordinator[K]) executeAvailableEvents() {
	d.drainFinalizingQueue()
	d.drainSchedulingQueue()
}

// drainSchedulingQueue polls every currently processable event, transitions
// each to TO_PROCESS, and dispatches the batch to the worker pool (or runs
// it synchronously when cfg.PoolSize == 0) in one call. Returns the count
// scheduled. Once a failure has halted the coordinator, it polls nothing
// and returns 0: events already queued stay queued, never dispatched.
func (d *DriverCoordinator[K]) drainSchedulingQueue() int {
	if d.failure != nil {
		return 0
	}

	var batch []*pool.Task[K]
	for {
		ev, ok := d.scheduling.Poll()
		if !ok {
			break
		}
		if err := ev.Transition(event.ToProcess); err != nil {
			d.log.WithError(err).Error("invalid transition to TO_PROCESS")
		}
		t := pool.GetTask[K](d.taskPool)
		t.Event = ev
		t.Router = d.router
		t.Sink = d.finalizing
		t.Stores = d.boundStores()
		batch = append(batch, t)
	}
	if len(batch) == 0 {
		return 0
	}

	if d.workerPool != nil {
		d.workerPool.ScheduleForProcessing(batch)
	} else {
		// async_pool_size == 0: run synchronously on the driver thread
		// itself, preserving identical semantics to the async path.
		for _, t := range batch {
			pool.ExecuteTask(t, d.log, d.finalizeHist)
		}
	}
	return len(batch)
}

// drainFinalizingQueue repeatedly drains completed events, replaying their
// intercepted side effects on the driver thread under the event's restored
// record context.
func (d *DriverCoordinator[K]) drainFinalizingQueue() int {
	n := 0
	for {
		ev, ok := d.finalizing.TryNext()
		if !ok {
			break
		}
		d.finalizeOne(ev)
		n++
	}
	return n
}

func (d *DriverCoordinator[K]) finalizeOne(ev *event.AsyncEvent[K]) {
	start := time.Now()
	defer func() { d.finalizeHist.Record(time.Since(start).Seconds()) }()

	if err := ev.Transition(event.Finalizing); err != nil {
		d.log.WithError(err).Error("invalid transition to FINALIZING")
	}
	d.router.RestoreRecordContext(ev.RecordContext)

	cause, failed := ev.Failed()
	if !failed {
		d.replaySideEffects(ev)
		cause, failed = ev.Failed()
	}
	if failed {
		te := &TaskError{Err: wrapCallbackFailure(cause), Key: ev.Key, Partition: ev.Partition}
		d.log.WithError(te).Error("event failed; halting further dispatch")
		if d.failure == nil {
			d.failure = te
		}
	}

	if err := ev.Transition(event.Done); err != nil {
		d.log.WithError(err).Error("invalid transition to DONE")
	}
	delete(d.pendingEvents, ev)
	d.pendingGauge.Add(-1)
	d.scheduling.UnblockKey(ev.Key)
}

// replaySideEffects drains interleaved forwards/writes in submission order
// until both lists are empty: forwards and writes within a single event
// are applied in submission order.
func (d *DriverCoordinator[K]) replaySideEffects(ev *event.AsyncEvent[K]) {
	for {
		f, hasForward := ev.NextForward()
		if hasForward {
			d.host.Forward(f.Record, f.Child, f.HasChild)
		}
		w, hasWrite := ev.NextWrite()
		if hasWrite {
			d.applyWrite(ev, w)
		}
		if !hasForward && !hasWrite {
			return
		}
	}
}

func (d *DriverCoordinator[K]) applyWrite(ev *event.AsyncEvent[K], w event.WriteAction) {
	s, ok := d.stores[w.Store]
	if !ok {
		d.log.WithField("store", w.Store).Error("finalization write against undeclared store")
		return
	}
	var err error
	if w.Tombstone {
		err = s.Delete(w.Key)
	} else {
		err = s.Put(w.Key, w.Value)
	}
	if err != nil {
		ev.SetErr(newError(KindHostSideEffect, fmt.Errorf("store %q: %w", w.Store, err)))
	}
}

// finalizeAtLeastOne drains non-blocking first; if nothing was drained, it
// blocks on FinalizingQueue.WaitNext and finalizes that one event. A wait
// with no deadline that never returns a value is a fatal KindInterruption
// error — practically unreachable since WaitNext(0) blocks forever by
// design; deadline is only used by callers wanting bounded waits.
func (d *DriverCoordinator[K]) finalizeAtLeastOne() error {
	if d.drainFinalizingQueue() > 0 {
		return nil
	}
	ev, ok := d.finalizing.WaitNext(0)
	if !ok {
		return newError(KindInterruption, fmt.Errorf("finalize_at_least_one: wait interrupted"))
	}
	d.finalizeOne(ev)
	return nil
}

// FlushAndAwait drains and finalizes until pendingEvents is empty, then
// returns — the host may now safely commit offsets. No new events are
// admitted by any other coordinator method while this blocks, because the
// coordinator is single-threaded and this call owns the only thread that
// could admit one. If the coordinator has halted on a user-callback
// failure, some pending events can never be dispatched or finalized;
// FlushAndAwait returns that failure immediately rather than blocking
// forever waiting for them.
func (d *DriverCoordinator[K]) FlushAndAwait() error {
	for len(d.pendingEvents) > 0 {
		if d.failure != nil {
			return d.failure
		}
		d.drainSchedulingQueue()
		if err := d.finalizeAtLeastOne(); err != nil {
			return err
		}
	}
	return nil
}

// Close cancels the tick and stops accepting new dispatch. It does not
// wait for in-flight events: the host is responsible for calling
// FlushAndAwait first on a clean shutdown. Emits a warning if pendingEvents
// is non-empty, which is expected only on a dirty shutdown.
func (d *DriverCoordinator[K]) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if len(d.pendingEvents) > 0 {
		d.log.WithField("pending_events", len(d.pendingEvents)).Warn("closing with events still pending (dirty shutdown)")
	}
	switch {
	case d.registry != nil:
		d.registry.Release(d.cfg.DriverID)
	case d.workerPool != nil:
		d.workerPool.Close()
	}
}

// PendingCount reports the number of events offered and not yet DONE.
// Exposed for host pre-commit checks and tests.
func (d *DriverCoordinator[K]) PendingCount() int {
	return len(d.pendingEvents)
}
