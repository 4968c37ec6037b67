package pool

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kafkaflow/asyncproc/metrics"
)

// WorkerPool is a fixed pool of N worker goroutines sharing a single task
// channel. Tasks are claimed FIFO by whichever goroutine checks out a free
// slot first; each task then runs in its own goroutine for the duration of
// the user callback so a slow callback never head-of-line-blocks the
// dispatcher. Concurrency is bounded to N by the underlying Fixed slot
// pool, grounded on the teacher's dispatcher.go Get()/Put()-around-execution
// shape.
type WorkerPool[K comparable] struct {
	tasks chan *Task[K]
	slots Pool // *fixed, capacity N

	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}

	log    *logrus.Entry
	inFlight  metrics.UpDownCounter
	queueGauge metrics.UpDownCounter
	latency   metrics.Histogram
}

// Config bundles the optional instrumentation WorkerPool reports through.
type Config struct {
	Logger   *logrus.Entry
	Metrics  metrics.Provider
}

// NewWorkerPool constructs a pool of size worker slots and starts its
// dispatcher goroutine. size must be >= 1; callers implementing the
// async_pool_size == 0 synchronous fallback should not construct a
// WorkerPool at all and instead call ExecuteTask directly.
func NewWorkerPool[K comparable](size int, cfg Config) *WorkerPool[K] {
	if size < 1 {
		size = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	provider := cfg.Metrics
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}

	p := &WorkerPool[K]{
		tasks:      make(chan *Task[K], 1024),
		slots:      NewFixed(uint(size), func() interface{} { return struct{}{} }),
		done:       make(chan struct{}),
		log:        log,
		inFlight:   provider.UpDownCounter("asyncproc_worker_inflight"),
		queueGauge: provider.UpDownCounter("asyncproc_worker_queue_depth"),
		latency:    provider.Histogram("asyncproc_callback_seconds"),
	}
	go p.run()
	return p
}

func (p *WorkerPool[K]) run() {
	for {
		select {
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			p.queueGauge.Add(-1)
			slot := p.slots.Get()
			p.wg.Add(1)
			go func(t *Task[K], slot interface{}) {
				defer p.wg.Done()
				defer p.slots.Put(slot)
				p.inFlight.Add(1)
				defer p.inFlight.Add(-1)
				ExecuteTask(t, p.log, p.latency)
			}(t, slot)
		case <-p.done:
			return
		}
	}
}

// ScheduleForProcessing pushes one task per event onto the shared task
// channel. Never blocks the caller beyond the channel's own buffering; a
// full channel applies natural backpressure to the driver, same as a
// blocking send would.
func (p *WorkerPool[K]) ScheduleForProcessing(tasks []*Task[K]) {
	for _, t := range tasks {
		p.queueGauge.Add(1)
		p.tasks <- t
	}
}

// Close initiates shutdown: stops the dispatcher loop and lets
// already-dispatched tasks finish without blocking the caller. Shutdown is
// non-blocking by design — the host joins at its own discretion via Wait.
// Idempotent.
func (p *WorkerPool[K]) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// Wait blocks until every dispatched task has finished. Used by tests and
// by a host that wants to join before process exit.
func (p *WorkerPool[K]) Wait() {
	p.wg.Wait()
}
