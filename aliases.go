package asyncproc

import (
	"github.com/kafkaflow/asyncproc/event"
	"github.com/kafkaflow/asyncproc/metrics"
	"github.com/kafkaflow/asyncproc/routing"
)

// Public aliases so callers depend only on the root package for the types
// that cross its API boundary, while the implementation stays split across
// event/routing/metrics/queue/pool for internal cohesion.
type (
	// AsyncEvent is one in-flight record moving through the async pipeline.
	AsyncEvent[K comparable] = event.AsyncEvent[K]
	// RecordContext is the opaque host-metadata snapshot captured at offer time.
	RecordContext = event.RecordContext
	// State is an AsyncEvent lifecycle stage.
	State = event.State

	// Store is the async-wrapped state-store contract exposed to callbacks.
	Store = routing.Store
	// Iterator walks a Store.Range result.
	Iterator = routing.Iterator
	// HostFacade is the slice of host capabilities this package consumes.
	HostFacade = routing.HostFacade

	// MetricsProvider constructs the instruments DriverCoordinator and
	// WorkerPool report through.
	MetricsProvider = metrics.Provider
)

const (
	StateCreated    = event.Created
	StateToProcess  = event.ToProcess
	StateProcessing = event.Processing
	StateToFinalize = event.ToFinalize
	StateFinalizing = event.Finalizing
	StateDone       = event.Done
)

// ErrUnknownChild is the cause reported, wrapped in an *ErrHostMisuse, when a
// callback forwards to a child name DeclareChildren never declared.
var ErrUnknownChild = routing.ErrUnknownChild
