package queue

import (
	"container/list"
	"sync"
	"time"

	"github.com/kafkaflow/asyncproc/event"
)

// FinalizingQueue is an unbounded, multi-producer/single-consumer queue of
// events that completed PROCESSING and are awaiting the driver's
// FINALIZING step, in strict submission order. Workers submit
// concurrently; only the driver thread ever calls TryNext/WaitNext.
type FinalizingQueue[K comparable] struct {
	mu     sync.Mutex
	order  *list.List // FIFO of *event.AsyncEvent[K]
	signal chan struct{}
}

// NewFinalizingQueue constructs an empty queue.
func NewFinalizingQueue[K comparable]() *FinalizingQueue[K] {
	return &FinalizingQueue[K]{
		order:  list.New(),
		signal: make(chan struct{}, 1),
	}
}

// Submit appends e. Safe for concurrent use by any number of worker
// goroutines.
func (q *FinalizingQueue[K]) Submit(e *event.AsyncEvent[K]) {
	q.mu.Lock()
	q.order.PushBack(e)
	q.mu.Unlock()
	q.wake()
}

func (q *FinalizingQueue[K]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryNext returns the oldest pending event without blocking. ok is false if
// the queue is currently empty.
func (q *FinalizingQueue[K]) TryNext() (e *event.AsyncEvent[K], ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	el := q.order.Front()
	if el == nil {
		return nil, false
	}
	q.order.Remove(el)
	return el.Value.(*event.AsyncEvent[K]), true
}

// WaitNext returns the oldest pending event, blocking until one is submitted
// or deadline elapses. A zero deadline means wait forever. ok is false on
// timeout.
func (q *FinalizingQueue[K]) WaitNext(deadline time.Duration) (e *event.AsyncEvent[K], ok bool) {
	if e, ok = q.TryNext(); ok {
		return e, true
	}
	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if deadline > 0 {
		timer = time.NewTimer(deadline)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	for {
		select {
		case <-q.signal:
			if e, ok = q.TryNext(); ok {
				return e, true
			}
			// Spurious wake (another waiter drained it first); keep waiting.
		case <-timeoutCh:
			return nil, false
		}
	}
}

// IsEmpty reports whether the queue currently holds no pending events.
func (q *FinalizingQueue[K]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len() == 0
}

// Len returns the number of events currently pending finalization.
func (q *FinalizingQueue[K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len()
}
