package pool

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kafkaflow/asyncproc/metrics"
)

// Registry maps a driver identity to its dedicated WorkerPool, shared by
// every processor instance registered on that driver, with a lifecycle
// bound to the driver's session. Grounded on the teacher's workers.go
// sync.Once-guarded Start, generalized from a single instance to a
// registry keyed by driver identity; shutdown idempotency mirrors
// lifecycle.go's sync.Once-guarded Close().
type Registry[K comparable] struct {
	mu      sync.Mutex
	entries map[string]*registryEntry[K]
	size    int
	cfg     Config
}

type registryEntry[K comparable] struct {
	pool     *WorkerPool[K]
	refCount int
}

// NewRegistry constructs a registry that creates pools of the given size.
func NewRegistry[K comparable](size int, cfg Config) *Registry[K] {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopProvider()
	}
	return &Registry[K]{
		entries: make(map[string]*registryEntry[K]),
		size:    size,
		cfg:     cfg,
	}
}

// Acquire returns the WorkerPool for driverID, creating it on first use and
// incrementing its reference count. Every Acquire must be matched by a
// Release when the caller's processor instance closes.
func (r *Registry[K]) Acquire(driverID string) *WorkerPool[K] {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[driverID]
	if !ok {
		e = &registryEntry[K]{
			pool: NewWorkerPool[K](r.size, Config{
				Logger:  r.cfg.Logger.WithField("driver_id", driverID),
				Metrics: r.cfg.Metrics,
			}),
		}
		r.entries[driverID] = e
	}
	e.refCount++
	return e.pool
}

// Release decrements driverID's reference count and, once it reaches zero,
// closes and removes the pool (non-blocking). Safe to call even if
// driverID was never acquired.
func (r *Registry[K]) Release(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[driverID]
	if !ok {
		return
	}
	e.refCount--
	if e.refCount <= 0 {
		e.pool.Close()
		delete(r.entries, driverID)
	}
}

// Len reports the number of distinct driver identities currently registered.
func (r *Registry[K]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
