package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kafkaflow/asyncproc/event"
	"github.com/kafkaflow/asyncproc/queue"
	"github.com/kafkaflow/asyncproc/routing"
)

type fakeHost struct{ mu sync.Mutex }

func (f *fakeHost) RecordMetadata() event.RecordContext { return event.RecordContext{} }
func (f *fakeHost) CurrentStreamTimeMs() int64           { return 0 }
func (f *fakeHost) CurrentSystemTimeMs() int64           { return 0 }
func (f *fakeHost) Forward(record any, child string, hasChild bool) {}
func (f *fakeHost) Schedule(interval time.Duration, callback func()) {}
func (f *fakeHost) AppConfigs() map[string]string                   { return nil }
func (f *fakeHost) AppConfigsWithPrefix(prefix string) map[string]string { return nil }
func (f *fakeHost) TaskID() string                                  { return "" }
func (f *fakeHost) CurrentNodeName() string                         { return "" }
func (f *fakeHost) GetStateStore(name string) (routing.Store, error) { return nil, nil }
func (f *fakeHost) RecordContext() event.RecordContext              { return event.RecordContext{} }
func (f *fakeHost) SetRecordContext(rc event.RecordContext)         {}

func newTestEvent(key string, cb func()) *event.AsyncEvent[string] {
	e := event.New[string](key, 0, nil, event.RecordContext{}, 0, 0, cb)
	_ = e.Transition(event.ToProcess)
	return e
}

func TestWorkerPool_RunsCallbackAndSubmitsToSink(t *testing.T) {
	p := NewWorkerPool[string](2, Config{})
	defer p.Close()

	router := routing.NewContextRouter[string](&fakeHost{})
	router.EnterProcessing()
	sink := queue.NewFinalizingQueue[string]()

	var ran int32
	ev := newTestEvent("a", func() { atomic.AddInt32(&ran, 1) })

	p.ScheduleForProcessing([]*Task[string]{{Event: ev, Router: router, Sink: sink}})

	got, ok := sink.WaitNext(2 * time.Second)
	require.True(t, ok)
	require.Same(t, ev, got)
	require.Equal(t, int32(1), atomic.LoadInt32(&ran))
	require.Equal(t, event.ToFinalize, ev.State())
}

func TestWorkerPool_RecoversPanicAndSetsErr(t *testing.T) {
	p := NewWorkerPool[string](1, Config{})
	defer p.Close()

	router := routing.NewContextRouter[string](&fakeHost{})
	router.EnterProcessing()
	sink := queue.NewFinalizingQueue[string]()

	ev := newTestEvent("a", func() { panic("boom") })
	p.ScheduleForProcessing([]*Task[string]{{Event: ev, Router: router, Sink: sink}})

	got, ok := sink.WaitNext(2 * time.Second)
	require.True(t, ok)
	require.Same(t, ev, got)
	err, failed := ev.Failed()
	require.True(t, failed)
	require.Contains(t, err.Error(), "boom")
}

func TestWorkerPool_BoundsConcurrencyToSize(t *testing.T) {
	p := NewWorkerPool[string](2, Config{})
	defer p.Close()

	router := routing.NewContextRouter[string](&fakeHost{})
	router.EnterProcessing()
	sink := queue.NewFinalizingQueue[string]()

	var concurrent int32
	var maxConcurrent int32
	var mu sync.Mutex
	release := make(chan struct{})

	mkCb := func() func() {
		return func() {
			n := atomic.AddInt32(&concurrent, 1)
			mu.Lock()
			if n > maxConcurrent {
				maxConcurrent = n
			}
			mu.Unlock()
			<-release
			atomic.AddInt32(&concurrent, -1)
		}
	}

	tasks := make([]*Task[string], 5)
	for i := range tasks {
		ev := newTestEvent("k", mkCb())
		tasks[i] = &Task[string]{Event: ev, Router: router, Sink: sink}
	}
	p.ScheduleForProcessing(tasks)

	time.Sleep(100 * time.Millisecond)
	close(release)

	for i := 0; i < 5; i++ {
		_, ok := sink.WaitNext(2 * time.Second)
		require.True(t, ok)
	}

	mu.Lock()
	defer mu.Unlock()
	require.LessOrEqual(t, int(maxConcurrent), 2)
}
