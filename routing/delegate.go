package routing

import (
	"errors"
	"fmt"
	"time"

	"github.com/kafkaflow/asyncproc/event"
)

// ErrUnknownChild is the cause wrapped into ErrHostMisuse when a callback
// forwards to a child name the topology never declared.
var ErrUnknownChild = errors.New("routing: forward to unknown child")

// HostFacade is the slice of the host stream framework's context that this
// package wraps: record metadata, clocks, forward, the tick registration,
// config lookups and store access, plus the record-context get/set pair
// used to restore context before finalization side effects.
type HostFacade interface {
	RecordMetadata() event.RecordContext
	CurrentStreamTimeMs() int64
	CurrentSystemTimeMs() int64
	Forward(record any, child string, hasChild bool)
	Schedule(interval time.Duration, callback func())
	AppConfigs() map[string]string
	AppConfigsWithPrefix(prefix string) map[string]string
	TaskID() string
	CurrentNodeName() string
	GetStateStore(name string) (Store, error)
	RecordContext() event.RecordContext
	SetRecordContext(rc event.RecordContext)
}

// Delegate is the user-facing context surface the router hands back,
// identical in shape whether the caller is on the driver thread or a
// worker thread.
type Delegate interface {
	RecordMetadata() event.RecordContext
	CurrentStreamTimeMs() int64
	CurrentSystemTimeMs() int64
	Forward(record any, child string, hasChild bool) error
	AppConfigs() map[string]string
	AppConfigsWithPrefix(prefix string) map[string]string
	TaskID() string
	CurrentNodeName() string
	GetStateStore(name string) (Store, error)
}

// ErrHostMisuse reports a host-context misuse: a call that is invalid in
// the caller's current phase, reported synchronously to the caller rather
// than aborting the processor.
type ErrHostMisuse struct {
	Op     string
	Reason string
	Cause  error
}

func (e *ErrHostMisuse) Error() string {
	return fmt.Sprintf("routing: host-context misuse in %s: %s", e.Op, e.Reason)
}

func (e *ErrHostMisuse) Unwrap() error { return e.Cause }

// driverDelegate passes calls straight through to the real host facade. It
// is used inside the user's init/close and by the driver coordinator while
// replaying finalization side effects under a restored record context.
type driverDelegate struct {
	host HostFacade
}

func newDriverDelegate(host HostFacade) *driverDelegate {
	return &driverDelegate{host: host}
}

func (d *driverDelegate) RecordMetadata() event.RecordContext { return d.host.RecordMetadata() }
func (d *driverDelegate) CurrentStreamTimeMs() int64          { return d.host.CurrentStreamTimeMs() }
func (d *driverDelegate) CurrentSystemTimeMs() int64          { return d.host.CurrentSystemTimeMs() }

func (d *driverDelegate) Forward(record any, child string, hasChild bool) error {
	d.host.Forward(record, child, hasChild)
	return nil
}

func (d *driverDelegate) AppConfigs() map[string]string { return d.host.AppConfigs() }
func (d *driverDelegate) AppConfigsWithPrefix(prefix string) map[string]string {
	return d.host.AppConfigsWithPrefix(prefix)
}
func (d *driverDelegate) TaskID() string           { return d.host.TaskID() }
func (d *driverDelegate) CurrentNodeName() string  { return d.host.CurrentNodeName() }
func (d *driverDelegate) GetStateStore(name string) (Store, error) {
	return d.host.GetStateStore(name)
}

// restoreRecordContext installs rc as the host's active record context,
// used by the driver coordinator before replaying an event's intercepted
// side effects.
func (d *driverDelegate) restoreRecordContext(rc event.RecordContext) {
	d.host.SetRecordContext(rc)
}

// workerDelegate[K] intercepts side effects for one event's callback
// execution instead of performing them against the host. Metadata queries
// return values snapshotted on the event at offer time, never the live
// host context.
type workerDelegate[K comparable] struct {
	ev            *event.AsyncEvent[K]
	bound         map[string]Store
	knownChildren map[string]bool
}

func newWorkerDelegate[K comparable](ev *event.AsyncEvent[K], knownChildren map[string]bool) *workerDelegate[K] {
	return &workerDelegate[K]{ev: ev, knownChildren: knownChildren}
}

func (d *workerDelegate[K]) RecordMetadata() event.RecordContext { return d.ev.RecordContext }
func (d *workerDelegate[K]) CurrentStreamTimeMs() int64          { return d.ev.StreamTimeAtMs }
func (d *workerDelegate[K]) CurrentSystemTimeMs() int64          { return d.ev.SystemTimeAtMs }

func (d *workerDelegate[K]) Forward(record any, child string, hasChild bool) error {
	if hasChild && len(d.knownChildren) > 0 && !d.knownChildren[child] {
		return &ErrHostMisuse{
			Op:     "forward",
			Reason: fmt.Sprintf("child %q was not declared to the topology", child),
			Cause:  ErrUnknownChild,
		}
	}
	return d.ev.AppendForward(event.ForwardAction{Child: child, HasChild: hasChild, Record: record})
}

func (d *workerDelegate[K]) AppConfigs() map[string]string {
	return nil
}

func (d *workerDelegate[K]) AppConfigsWithPrefix(prefix string) map[string]string {
	return nil
}

func (d *workerDelegate[K]) TaskID() string { return "" }

func (d *workerDelegate[K]) CurrentNodeName() string { return "" }

// GetStateStore during PROCESSING returns the intercepting wrapper bound
// for name via BindStore: put/delete become pending writes; get still
// reads the real underlying store, optionally consulting the event's
// scratch overlay first.
func (d *workerDelegate[K]) GetStateStore(name string) (Store, error) {
	s, ok := d.bound[name]
	if !ok {
		return nil, &ErrHostMisuse{
			Op:     "get_state_store",
			Reason: fmt.Sprintf("store %q was not declared to the supplier before init", name),
		}
	}
	return s, nil
}

// BindStore wraps the real store for store name in an interceptingStore
// tied to this event, so a later GetStateStore(name) call from the same
// callback observes pending-write interception. Callers (the worker pool)
// bind every store a processor-instance declared before dispatching a
// task.
func (d *workerDelegate[K]) BindStore(name string, real Store) {
	if d.bound == nil {
		d.bound = make(map[string]Store)
	}
	d.bound[name] = &interceptingStore[K]{ev: d.ev, store: name, real: real}
}
