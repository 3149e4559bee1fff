// Package dispatch runs completion callbacks on a bounded set of worker
// goroutines shared by every client of a runtime.
package dispatch

import (
	"context"
	"errors"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPoolClosed is returned when submitting to a pool that was shut down.
var ErrPoolClosed = errors.New("dispatch: pool closed")

// Task is one unit of callback work.
type Task func()

// Options configure a pool.
type Options struct {
	// Workers is the number of worker goroutines. Zero selects GOMAXPROCS.
	Workers int
	// QueueSize bounds tasks waiting for a worker. Zero selects 64 per worker.
	QueueSize int
	Logger    zerolog.Logger
	// Overflow is called whenever a lane has to bypass a full queue.
	Overflow func()
}

// Pool is a fixed set of workers consuming a bounded queue.
type Pool struct {
	tasks    chan Task
	workers  int
	logger   zerolog.Logger
	overflow func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewPool starts the workers.
func NewPool(opts Options) *Pool {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = workers * 64
	}
	p := &Pool{
		tasks:    make(chan Task, queue),
		workers:  workers,
		logger:   opts.Logger,
		overflow: opts.Overflow,
		done:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run executes task and survives a panic raised by it.
func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("callback panicked")
		}
	}()
	task()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// TrySubmit queues task without waiting. It reports false when the queue is full.
func (p *Pool) TrySubmit(task Task) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return true, nil
	default:
		return false, nil
	}
}

// Shutdown stops accepting tasks and waits until queued tasks ran or ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
