package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/kvbridge/command"
	"github.com/timzifer/kvbridge/dispatch"
	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/internal/owned"
	"github.com/timzifer/kvbridge/runtime/connections"
)

// Client is the handle the host holds for one established session.
type Client struct {
	tag     owned.Tag
	id      owned.Handle
	runtime *Runtime
	session connections.Handle
	lane    *dispatch.Lane
	logger  zerolog.Logger

	success        SuccessCallback
	failure        FailureCallback
	requestTimeout time.Duration
	maxInflight    int

	mu      sync.Mutex
	closing bool
	nextID  uint64
	pending map[uint64]*pendingCommand
	io      sync.WaitGroup

	shutdownOnce sync.Once
	shutdownErr  error
}

type pendingCommand struct {
	channel uintptr
	done    atomic.Bool
	cancel  context.CancelFunc
}

// resolve claims the right to deliver the completion. Only the first caller wins.
func (p *pendingCommand) resolve() bool {
	return p.done.CompareAndSwap(false, true)
}

func newClient(r *Runtime, session connections.Handle, requestTimeout time.Duration, success SuccessCallback, failure FailureCallback) *Client {
	return &Client{
		runtime:        r,
		session:        session,
		lane:           r.pool.NewLane(r.cfg.LaneConcurrency),
		logger:         r.logger,
		success:        success,
		failure:        failure,
		requestTimeout: requestTimeout,
		maxInflight:    r.cfg.MaxInflight,
		pending:        make(map[uint64]*pendingCommand),
	}
}

// ID returns the registry handle of the client.
func (c *Client) ID() uint64 {
	return uint64(c.id)
}

// Pending returns the number of commands issued and not yet resolved.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Command issues one command and returns immediately. Exactly one of the
// client's callbacks fires for channel, on a pool worker, once the command
// completes, fails, times out or the client closes. Issuing on a closed
// client panics.
func (c *Client) Command(channel uintptr, requestType command.RequestType, args []string) {
	c.tag.Check("client", "command")

	argv, err := command.Build(requestType, args)
	if err != nil {
		c.deliverFailure(channel, envelope.Wrap(envelope.KindRequest, err, ""))
		return
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		c.deliverFailure(channel, envelope.New(envelope.KindClosing, "client is closing"))
		return
	}
	if len(c.pending) >= c.maxInflight {
		c.mu.Unlock()
		c.deliverFailure(channel, envelope.New(envelope.KindRequest, "maximum inflight requests (%d) reached", c.maxInflight))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	c.nextID++
	id := c.nextID
	p := &pendingCommand{channel: channel, cancel: cancel}
	c.pending[id] = p
	c.io.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.io.Done()
		reply, err := c.session.Do(ctx, argv...)
		cancel()

		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		if !p.resolve() {
			return
		}
		if err != nil {
			c.deliverFailure(channel, err)
			return
		}
		c.deliverSuccess(channel, reply)
	}()
}

// Reject completes channel with err through the failure callback without
// issuing anything. It serves callers whose arguments could not be read.
func (c *Client) Reject(channel uintptr, err error) {
	c.tag.Check("client", "command")
	c.deliverFailure(channel, err)
}

func (c *Client) deliverSuccess(channel uintptr, reply connections.Reply) {
	c.runtime.collector.IncCompletion(outcome(nil))
	success := c.success
	c.lane.Post(func() {
		defer clear(reply)
		success(channel, reply)
	})
}

func (c *Client) deliverFailure(channel uintptr, err error) {
	env := envelope.Of(err)
	kind := env.Kind()
	c.runtime.collector.IncCompletion(kind.String())
	c.logger.Debug().
		Uint64("channel", uint64(channel)).
		Str("kind", kind.String()).
		Bool("retryable", kind.Retryable()).
		Msg("command failed")
	failure := c.failure
	c.lane.Post(func() {
		failure(channel, env)
	})
}

// shutdown fails outstanding commands with Closing, waits for their I/O,
// closes the session and waits for queued callbacks. It runs once; later
// calls return the first result.
func (c *Client) shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		pending := c.pending
		c.pending = make(map[uint64]*pendingCommand)
		c.mu.Unlock()

		for _, p := range pending {
			if p.resolve() {
				c.deliverFailure(p.channel, envelope.New(envelope.KindClosing, "client closed with command outstanding"))
			}
			p.cancel()
		}
		if len(pending) > 0 {
			c.logger.Debug().
				Int("outstanding", len(pending)).
				Int("callback_backlog", c.lane.Backlog()).
				Msg("failed outstanding commands on close")
		}

		c.io.Wait()
		var errs []error
		if err := c.session.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := c.lane.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain callbacks: %w", err))
		}
		c.shutdownErr = errors.Join(errs...)
	})
	return c.shutdownErr
}
