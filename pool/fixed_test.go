package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixed_GetCreatesUpToCapacityThenBlocks(t *testing.T) {
	var created int32
	newFn := func() interface{} {
		atomic.AddInt32(&created, 1)
		return &struct{}{}
	}
	p := NewFixed(2, newFn)

	s1 := p.Get()
	s2 := p.Get()
	require.NotNil(t, s1)
	require.NotNil(t, s2)

	gotCh := make(chan interface{}, 1)
	go func() { gotCh <- p.Get() }()

	select {
	case <-gotCh:
		t.Fatal("third Get should block until a slot is returned")
	case <-time.After(50 * time.Millisecond):
	}

	p.Put(s1)
	select {
	case got := <-gotCh:
		require.Equal(t, s1, got)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("blocked Get did not resume after Put")
	}

	require.Equal(t, int32(2), atomic.LoadInt32(&created))
}

func TestFixed_PutThenGetReusesInstance(t *testing.T) {
	p := NewFixed(1, func() interface{} { return &struct{}{} })
	w := p.Get()
	p.Put(w)
	w2 := p.Get()
	require.Same(t, w, w2)
}

func TestFixed_ConcurrentNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	var created int32
	var concurrent int32
	var maxConcurrent int32
	var mu sync.Mutex

	newFn := func() interface{} {
		atomic.AddInt32(&created, 1)
		return &struct{}{}
	}
	p := NewFixed(capacity, newFn)

	const goroutines = 30
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			w := p.Get()
			n := atomic.AddInt32(&concurrent, 1)
			mu.Lock()
			if n > maxConcurrent {
				maxConcurrent = n
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&concurrent, -1)
			p.Put(w)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, int(maxConcurrent), capacity)
	require.LessOrEqual(t, int(atomic.LoadInt32(&created)), capacity)
}

func TestFixed_CapacityZeroBlocksForever(t *testing.T) {
	p := NewFixed(0, func() interface{} { return &struct{}{} })
	done := make(chan struct{})
	go func() {
		_ = p.Get()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Get with capacity 0 must block")
	case <-time.After(50 * time.Millisecond):
	}
}
