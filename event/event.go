package event

import (
	"sync"
	"time"
)

// RecordHeader is a single opaque header entry carried by a host record.
type RecordHeader struct {
	Key   string
	Value []byte
}

// RecordContext is the opaque host-supplied metadata captured at offer time.
// It must be restored on the driver thread before any finalization side
// effect executes.
type RecordContext struct {
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
	Headers   []RecordHeader
}

// ForwardAction is a deferred forward intercepted during PROCESSING and
// replayed, in submission order, during FINALIZING.
type ForwardAction struct {
	Child    string // target child node name
	HasChild bool   // false means "forward to all children", per host semantics
	Record   any    // payload record; opaque to the core
}

// WriteAction is a deferred store write (or tombstone) intercepted during
// PROCESSING and replayed, in submission order, during FINALIZING.
type WriteAction struct {
	Store     string
	Key       []byte
	Value     []byte // nil + Tombstone == true means delete
	Tombstone bool
	Timestamp time.Time
}

// AsyncEvent is the unit of work that flows through the scheduling,
// worker-pool and finalizing stages. K is the input record's key type.
type AsyncEvent[K comparable] struct {
	mu sync.Mutex

	Key       K
	Partition int32
	Record    any // opaque input record payload

	RecordContext    RecordContext
	StreamTimeAtMs   int64
	SystemTimeAtMs   int64
	UserCallback     func()

	state State

	forwards []ForwardAction
	writes   []WriteAction

	// forwardCursor/writeCursor mark how much of forwards/writes has been
	// drained by NextForward/NextWrite during FINALIZING.
	forwardCursor int
	writeCursor   int

	// scratch holds this event's own intercepted writes keyed by store+key,
	// serving optional read-your-writes. It is populated only when
	// ScratchEnabled is true, and is never visible to any other event.
	ScratchEnabled bool
	scratch        map[string][]byte
	scratchTomb    map[string]bool

	// Err, if non-nil, records a user-callback failure (including a
	// recovered panic) captured by the worker pool, or a store-write
	// failure recorded while the driver replays the event. The driver
	// surfaces it during finalization and halts further dispatch.
	Err error
}

// New constructs an event in state Created.
func New[K comparable](key K, partition int32, record any, rc RecordContext, streamTimeMs, systemTimeMs int64, callback func()) *AsyncEvent[K] {
	return &AsyncEvent[K]{
		Key:            key,
		Partition:      partition,
		Record:         record,
		RecordContext:  rc,
		StreamTimeAtMs: streamTimeMs,
		SystemTimeAtMs: systemTimeMs,
		UserCallback:   callback,
		state:          Created,
	}
}

// State returns the event's current lifecycle stage.
func (e *AsyncEvent[K]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Transition advances the event to its immediate successor state. Any
// disallowed transition is a fatal programming error.
func (e *AsyncEvent[K]) Transition(to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if next, ok := allowedNext[e.state]; !ok || next != to {
		return &ErrInvalidTransition{From: e.state, To: to}
	}
	e.state = to
	return nil
}

// AppendForward records a deferred forward. Allowed only while PROCESSING.
func (e *AsyncEvent[K]) AppendForward(f ForwardAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Processing {
		return &ErrInvalidTransition{From: e.state, To: Processing}
	}
	e.forwards = append(e.forwards, f)
	return nil
}

// AppendWrite records a deferred store write. Allowed only while PROCESSING.
// If ScratchEnabled, the write is also staged into the per-event scratch
// overlay so a same-event store.get can observe it.
func (e *AsyncEvent[K]) AppendWrite(w WriteAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Processing {
		return &ErrInvalidTransition{From: e.state, To: Processing}
	}
	e.writes = append(e.writes, w)
	if e.ScratchEnabled {
		sk := scratchKey(w.Store, w.Key)
		if w.Tombstone {
			if e.scratchTomb == nil {
				e.scratchTomb = make(map[string]bool)
			}
			e.scratchTomb[sk] = true
			delete(e.scratch, sk)
		} else {
			if e.scratch == nil {
				e.scratch = make(map[string][]byte)
			}
			e.scratch[sk] = w.Value
			delete(e.scratchTomb, sk)
		}
	}
	return nil
}

// ScratchGet returns a value staged by this event's own earlier writes, if
// ScratchEnabled and a write for (store, key) has been appended so far.
// tombstoned reports a same-event delete that should be served as "absent"
// instead of falling through to the underlying store.
func (e *AsyncEvent[K]) ScratchGet(store string, key []byte) (value []byte, tombstoned bool, found bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ScratchEnabled {
		return nil, false, false
	}
	sk := scratchKey(store, key)
	if e.scratchTomb[sk] {
		return nil, true, true
	}
	if v, ok := e.scratch[sk]; ok {
		return v, false, true
	}
	return nil, false, false
}

func scratchKey(store string, key []byte) string {
	return store + "\x00" + string(key)
}

// NextForward returns the next pending forward in submission order. Allowed
// only while FINALIZING; returns ok == false once the list is drained.
func (e *AsyncEvent[K]) NextForward() (f ForwardAction, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Finalizing || e.forwardCursor >= len(e.forwards) {
		return ForwardAction{}, false
	}
	f = e.forwards[e.forwardCursor]
	e.forwardCursor++
	return f, true
}

// NextWrite returns the next pending write in submission order. Allowed only
// while FINALIZING; returns ok == false once the list is drained.
func (e *AsyncEvent[K]) NextWrite() (w WriteAction, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Finalizing || e.writeCursor >= len(e.writes) {
		return WriteAction{}, false
	}
	w = e.writes[e.writeCursor]
	e.writeCursor++
	return w, true
}

// Drained reports whether both pending-forward and pending-write lists have
// been fully consumed by NextForward/NextWrite.
func (e *AsyncEvent[K]) Drained() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.forwardCursor >= len(e.forwards) && e.writeCursor >= len(e.writes)
}

// SetErr records a user-callback failure (including a recovered panic) for
// later surfacing during finalization.
func (e *AsyncEvent[K]) SetErr(err error) {
	e.mu.Lock()
	e.Err = err
	e.mu.Unlock()
}

// Failed reports whether a user-callback error was recorded.
func (e *AsyncEvent[K]) Failed() (error, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Err, e.Err != nil
}
