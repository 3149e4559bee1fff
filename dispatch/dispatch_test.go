package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, workers, queue int) *Pool {
	t.Helper()
	p := NewPool(Options{Workers: workers, QueueSize: queue, Logger: zerolog.Nop()})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

// submit queues task, retrying while the queue is full.
func submit(t *testing.T, p *Pool, task Task) {
	t.Helper()
	require.Eventually(t, func() bool {
		ok, err := p.TrySubmit(task)
		return ok || err != nil
	}, time.Second, time.Millisecond)
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := newTestPool(t, 4, 16)
	var wg sync.WaitGroup
	var count atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		submit(t, p, func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	require.Equal(t, int32(100), count.Load())
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	p := newTestPool(t, 1, 4)
	done := make(chan struct{})
	submit(t, p, func() { panic("boom") })
	submit(t, p, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestPoolShutdownDrainsQueue(t *testing.T) {
	p := NewPool(Options{Workers: 1, QueueSize: 8, Logger: zerolog.Nop()})
	var count atomic.Int32
	for i := 0; i < 8; i++ {
		ok, err := p.TrySubmit(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		})
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, p.Shutdown(context.Background()))
	require.Equal(t, int32(8), count.Load())

	ok, err := p.TrySubmit(func() {})
	require.False(t, ok)
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolWorkers(t *testing.T) {
	require.Equal(t, 3, newTestPool(t, 3, 4).Workers())
	require.Positive(t, newTestPool(t, 0, 4).Workers())
}

func TestLaneRunsOffCallerGoroutine(t *testing.T) {
	p := newTestPool(t, 2, 8)
	lane := p.NewLane(1)

	caller := make(chan struct{})
	ran := make(chan bool, 1)
	lane.Post(func() {
		select {
		case <-caller:
			ran <- true
		case <-time.After(time.Second):
			ran <- false
		}
	})
	// Post returned while the task is still waiting for us
	close(caller)
	require.True(t, <-ran)
}

func TestLaneLimitsOccupancy(t *testing.T) {
	p := newTestPool(t, 4, 64)
	lane := p.NewLane(2)

	var running, peak atomic.Int32
	release := make(chan struct{})
	for i := 0; i < 10; i++ {
		lane.Post(func() {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		})
	}
	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, 8, lane.Backlog())

	// a second client still gets workers while the first one is stuck
	other := p.NewLane(2)
	done := make(chan struct{})
	other.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated lane starved")
	}

	close(release)
	require.NoError(t, lane.Wait(context.Background()))
	require.Equal(t, int32(2), peak.Load())
}

func TestLaneSingleSlotPreservesOrder(t *testing.T) {
	p := newTestPool(t, 4, 64)
	lane := p.NewLane(1)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		lane.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	require.NoError(t, lane.Wait(context.Background()))
	require.Len(t, order, 50)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestLaneOverflowWhenQueueFull(t *testing.T) {
	var overflows atomic.Int32
	p := NewPool(Options{Workers: 1, QueueSize: 1, Logger: zerolog.Nop(), Overflow: func() { overflows.Add(1) }})
	defer p.Shutdown(context.Background())

	block := make(chan struct{})
	submit(t, p, func() { <-block })
	require.Eventually(t, func() bool { return len(p.tasks) == 0 }, time.Second, time.Millisecond)
	submit(t, p, func() {})

	lane := p.NewLane(1)
	done := make(chan struct{})
	lane.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("overflowed task never ran")
	}
	require.Equal(t, int32(1), overflows.Load())
	close(block)
}

func TestLaneDeliversAfterPoolShutdown(t *testing.T) {
	p := NewPool(Options{Workers: 1, Logger: zerolog.Nop()})
	lane := p.NewLane(1)
	require.NoError(t, p.Shutdown(context.Background()))

	done := make(chan struct{})
	lane.Post(func() { close(done) })
	require.NoError(t, lane.Wait(context.Background()))
	<-done
}

func TestLaneWaitHonoursContext(t *testing.T) {
	p := newTestPool(t, 1, 4)
	lane := p.NewLane(1)
	release := make(chan struct{})
	lane.Post(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, lane.Wait(ctx), context.DeadlineExceeded)
	close(release)
	require.NoError(t, lane.Wait(context.Background()))
}
