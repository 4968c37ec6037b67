package pool

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kafkaflow/asyncproc/event"
	"github.com/kafkaflow/asyncproc/metrics"
)

// ErrCallbackPanic wraps a recovered user-callback panic: captured by the
// worker, attached to the event, and submitted to the finalizing queue
// with the error recorded.
type ErrCallbackPanic struct {
	Value any
}

func (e *ErrCallbackPanic) Error() string {
	return fmt.Sprintf("pool: user callback panicked: %v", e.Value)
}

// ExecuteTask runs one task's worker loop body: transition PROCESSING,
// install the worker-local router delegate, invoke the callback with panic
// recovery, remove the delegate, transition TO_FINALIZE, submit to the
// finalizing sink, and return t to its originating pool if it was checked
// out via GetTask. It is used both by WorkerPool's dispatched goroutines
// and, when async_pool_size == 0, by the driver coordinator running
// callbacks synchronously — the same function keeps both paths'
// semantics identical.
func ExecuteTask[K comparable](t *Task[K], log *logrus.Entry, hist metrics.Histogram) {
	ev := t.Event
	recycle := t.recycle
	defer func() {
		if recycle != nil {
			t.reset()
			recycle.Put(t)
		}
	}()

	if err := ev.Transition(event.Processing); err != nil {
		log.WithError(err).Error("invalid transition to PROCESSING")
		ev.SetErr(err)
		t.Sink.Submit(ev)
		return
	}

	release := t.Router.InstallWorkerDelegate(ev, t.Stores)
	start := time.Now()
	func() {
		defer release()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("user callback panicked")
				ev.SetErr(&ErrCallbackPanic{Value: r})
			}
		}()
		ev.UserCallback()
	}()
	if hist != nil {
		hist.Record(time.Since(start).Seconds())
	}

	if err := ev.Transition(event.ToFinalize); err != nil {
		log.WithError(err).Error("invalid transition to TO_FINALIZE")
		ev.SetErr(err)
	}
	t.Sink.Submit(ev)
}
