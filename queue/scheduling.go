// Package queue holds the two queue stages of the processor pipeline: the
// per-key-ordered SchedulingQueue (C2) that feeds the worker pool, and the
// submission-ordered FinalizingQueue (C3) that feeds the driver's finalize
// step.
package queue

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/kafkaflow/asyncproc/event"
)

// ErrDuplicateEvent is returned by Offer when the same *event.AsyncEvent[K]
// pointer is offered twice without being polled and unblocked in between.
var ErrDuplicateEvent = fmt.Errorf("queue: event already present in scheduling queue")

// SchedulingQueue is a FIFO of pending events with per-key admission
// control. At most one event per key may be "active" (polled but not yet
// unblocked) at any time, and a key may hold at most maxEventsPerKey queued
// events including the active one.
//
// Selection is conservative: regardless of maxEventsPerKey, a second event
// for a key already active is never processable until UnblockKey releases
// that key, preserving strict per-key ordering even when the configured
// cap would otherwise allow more than one in flight.
type SchedulingQueue[K comparable] struct {
	mu sync.Mutex

	maxEventsPerKey int

	order   *list.List               // FIFO of *event.AsyncEvent[K], oldest first
	byEvent map[*event.AsyncEvent[K]]*list.Element

	inFlight map[K]int  // queued-or-active count per key, for the per-key cap
	active   map[K]bool // true once a key's event has been polled, until UnblockKey
}

// NewSchedulingQueue constructs an empty queue. maxEventsPerKey must be >= 1.
func NewSchedulingQueue[K comparable](maxEventsPerKey int) *SchedulingQueue[K] {
	if maxEventsPerKey < 1 {
		maxEventsPerKey = 1
	}
	return &SchedulingQueue[K]{
		maxEventsPerKey: maxEventsPerKey,
		order:           list.New(),
		byEvent:         make(map[*event.AsyncEvent[K]]*list.Element),
		inFlight:        make(map[K]int),
		active:          make(map[K]bool),
	}
}

// KeyQueueIsFull reports whether key already holds maxEventsPerKey queued (or
// active) events, i.e. whether a caller should apply backpressure before
// offering another event for this key.
func (q *SchedulingQueue[K]) KeyQueueIsFull(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight[key] >= q.maxEventsPerKey
}

// Offer enqueues e. Returns ErrDuplicateEvent if e is already present.
func (q *SchedulingQueue[K]) Offer(e *event.AsyncEvent[K]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, dup := q.byEvent[e]; dup {
		return ErrDuplicateEvent
	}
	el := q.order.PushBack(e)
	q.byEvent[e] = el
	q.inFlight[e.Key]++
	return nil
}

// HasProcessable reports whether Poll would currently return an event: the
// oldest queued event whose key is not already active.
func (q *SchedulingQueue[K]) HasProcessable() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.firstProcessable() != nil
}

// firstProcessable returns the list element of the oldest event whose key is
// not active, or nil. Callers must hold q.mu.
func (q *SchedulingQueue[K]) firstProcessable() *list.Element {
	for el := q.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*event.AsyncEvent[K])
		if !q.active[e.Key] {
			return el
		}
	}
	return nil
}

// Poll removes and returns the oldest processable event, marking its key
// active so that no sibling event for the same key becomes processable until
// UnblockKey is called. Returns ok == false if no event is currently
// processable (every queued key is already active, or the queue is empty).
func (q *SchedulingQueue[K]) Poll() (e *event.AsyncEvent[K], ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	el := q.firstProcessable()
	if el == nil {
		return nil, false
	}
	e = el.Value.(*event.AsyncEvent[K])
	q.order.Remove(el)
	delete(q.byEvent, e)
	q.active[e.Key] = true
	return e, true
}

// UnblockKey releases key so its next queued event (if any) becomes
// processable. Called once the event previously polled for key has reached
// event.Done. It also reduces key's in-flight count by one, reflecting
// that the finalized event has left the pipeline.
func (q *SchedulingQueue[K]) UnblockKey(key K) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, key)
	if n := q.inFlight[key] - 1; n > 0 {
		q.inFlight[key] = n
	} else {
		delete(q.inFlight, key)
	}
}

// Len returns the number of events currently queued (processable or not).
func (q *SchedulingQueue[K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len()
}
