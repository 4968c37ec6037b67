package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFinalizingQueue_SubmissionOrderPreserved(t *testing.T) {
	q := NewFinalizingQueue[string]()
	e1 := newTestEvent("a")
	e2 := newTestEvent("b")
	e3 := newTestEvent("a")
	q.Submit(e1)
	q.Submit(e2)
	q.Submit(e3)

	got, ok := q.TryNext()
	require.True(t, ok)
	require.Same(t, e1, got)
	got, ok = q.TryNext()
	require.True(t, ok)
	require.Same(t, e2, got)
	got, ok = q.TryNext()
	require.True(t, ok)
	require.Same(t, e3, got)

	require.True(t, q.IsEmpty())
}

func TestFinalizingQueue_TryNextEmpty(t *testing.T) {
	q := NewFinalizingQueue[string]()
	_, ok := q.TryNext()
	require.False(t, ok)
}

func TestFinalizingQueue_WaitNextTimesOut(t *testing.T) {
	q := NewFinalizingQueue[string]()
	start := time.Now()
	_, ok := q.WaitNext(20 * time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFinalizingQueue_WaitNextWakesOnSubmit(t *testing.T) {
	q := NewFinalizingQueue[string]()
	e := newTestEvent("a")

	var wg sync.WaitGroup
	resultCh := make(chan bool, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ev, ok := q.WaitNext(2 * time.Second)
		resultCh <- ok && ev == e
	}()

	time.Sleep(10 * time.Millisecond)
	q.Submit(e)
	wg.Wait()
	require.True(t, <-resultCh)
}

func TestFinalizingQueue_ConcurrentSubmitters(t *testing.T) {
	q := NewFinalizingQueue[string]()
	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Submit(newTestEvent("k"))
		}()
	}
	wg.Wait()
	require.Equal(t, n, q.Len())
}
