package dispatch

import (
	"context"
	"sync"
)

// Lane feeds the tasks of one client into a shared pool while occupying at
// most limit workers at a time. Tasks beyond the limit wait in the lane, so a
// client with slow callbacks cannot take over the pool. With limit 1 tasks run
// in posting order.
type Lane struct {
	pool  *Pool
	limit int

	mu          sync.Mutex
	backlog     []Task
	active      int
	outstanding int
	idle        chan struct{}
}

// NewLane creates a lane on p. A limit below one is treated as one.
func (p *Pool) NewLane(limit int) *Lane {
	if limit < 1 {
		limit = 1
	}
	return &Lane{pool: p, limit: limit}
}

// Post schedules task. It never blocks and never runs task on the calling
// goroutine.
func (l *Lane) Post(task Task) {
	l.mu.Lock()
	l.outstanding++
	if l.outstanding == 1 {
		l.idle = make(chan struct{})
	}
	if l.active >= l.limit {
		l.backlog = append(l.backlog, task)
		l.mu.Unlock()
		return
	}
	l.active++
	l.mu.Unlock()
	l.start(task)
}

func (l *Lane) start(task Task) {
	wrapped := func() {
		defer l.finish()
		l.pool.run(task)
	}
	ok, err := l.pool.TrySubmit(wrapped)
	if ok {
		return
	}
	if err == nil && l.pool.overflow != nil {
		l.pool.overflow()
	}
	// queue full or pool gone: the lane still owes this completion
	go wrapped()
}

func (l *Lane) finish() {
	l.mu.Lock()
	l.outstanding--
	if l.outstanding == 0 {
		close(l.idle)
	}
	if len(l.backlog) == 0 {
		l.active--
		l.mu.Unlock()
		return
	}
	next := l.backlog[0]
	l.backlog[0] = nil
	l.backlog = l.backlog[1:]
	l.mu.Unlock()
	l.start(next)
}

// Backlog returns the number of tasks waiting for a worker slot.
func (l *Lane) Backlog() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.backlog)
}

// Wait blocks until every posted task ran or ctx is done.
func (l *Lane) Wait(ctx context.Context) error {
	l.mu.Lock()
	if l.outstanding == 0 {
		l.mu.Unlock()
		return nil
	}
	idle := l.idle
	l.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
