// Package bridge is the connection lifecycle and completion dispatch core
// behind the foreign boundary.
//
// A Runtime creates clients from serialized connection requests, runs their
// completion callbacks on a shared worker pool and tracks every allocation it
// hands out so that each is released exactly once. Misuse of a released object
// panics with *owned.Violation.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/timzifer/kvbridge/connreq"
	"github.com/timzifer/kvbridge/dispatch"
	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/internal/config"
	"github.com/timzifer/kvbridge/internal/logging"
	"github.com/timzifer/kvbridge/internal/owned"
	"github.com/timzifer/kvbridge/runtime/connections"
	"github.com/timzifer/kvbridge/session"
	"github.com/timzifer/kvbridge/telemetry"
)

// SuccessCallback receives a completed command. message is nil for a null
// reply and is only valid until the callback returns.
type SuccessCallback func(channel uintptr, message []byte)

// FailureCallback receives a failed command. The host owns err and must pass
// it to FreeError.
type FailureCallback func(channel uintptr, err *envelope.Envelope)

// ConnectionResponse is the outcome of CreateClient. Exactly one of Conn and
// Error is set. It is released with FreeConnectionResponse, which also
// releases Error but never closes Conn.
type ConnectionResponse struct {
	tag   owned.Tag
	Conn  *Client
	Error *envelope.Envelope
}

// Runtime owns the worker pool shared by all of its clients.
type Runtime struct {
	cfg       *config.Config
	logger    zerolog.Logger
	collector telemetry.Collector
	factory   connections.Factory
	pool      *dispatch.Pool
	clients   *owned.Table[*Client]
	cleanup   func()

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// New constructs a runtime with the supplied options.
func New(opts ...Option) (*Runtime, error) {
	cfg := settings{
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil && cfg.configPath != "" {
		loaded, err := config.Load(cfg.configPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg.config = loaded
	}
	if cfg.config == nil {
		cfg.config = config.Default()
	}
	cfg.config.Normalize()

	cleanup := func() {}
	if !cfg.customLogger {
		logger, closer, err := logging.Setup(cfg.config.Logging)
		if err != nil {
			return nil, fmt.Errorf("setup logging: %w", err)
		}
		cfg.logger = logger
		cleanup = closer
	}

	if !cfg.telemetryProvided {
		collector, err := newTelemetryCollector(cfg.config.Telemetry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
			cfg.telemetry = telemetry.Noop()
		} else {
			cfg.telemetry = collector
		}
	}

	if cfg.factory == nil {
		cfg.factory = session.NewFactory(session.Options{
			Logger:         cfg.logger.With().Str("component", "session").Logger(),
			CommandTimeout: cfg.config.RequestTimeout.Duration,
		})
	}

	collector := cfg.telemetry
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		cfg:       cfg.config,
		logger:    cfg.logger,
		collector: collector,
		factory:   cfg.factory,
		clients:   owned.NewTable[*Client](),
		cleanup:   cleanup,
		ctx:       ctx,
		cancel:    cancel,
	}
	r.pool = dispatch.NewPool(dispatch.Options{
		Workers:   cfg.config.Workers,
		QueueSize: cfg.config.QueueSize,
		Logger:    cfg.logger.With().Str("component", "dispatch").Logger(),
		Overflow:  collector.IncLaneOverflow,
	})
	r.logger.Debug().
		Int("workers", r.pool.Workers()).
		Int("queue_size", cfg.config.QueueSize).
		Int("lane_concurrency", cfg.config.LaneConcurrency).
		Msg("runtime started")
	return r, nil
}

// Config returns the normalized runtime configuration.
func (r *Runtime) Config() config.Config {
	return *r.cfg
}

// LiveClients returns the number of clients created and not yet closed.
func (r *Runtime) LiveClients() int {
	return r.clients.Len()
}

// CreateClient decodes request, establishes a session and returns a response
// holding either the new client or an error envelope. It blocks at most for
// the configured connect timeout.
func (r *Runtime) CreateClient(request []byte, success SuccessCallback, failure FailureCallback) *ConnectionResponse {
	client, err := r.createClient(request, success, failure)
	r.collector.IncConnectionAttempt(outcome(err))
	if err != nil {
		r.logger.Debug().Err(err).Msg("create client failed")
		return Rejected(err)
	}
	r.collector.SetLiveClients(r.clients.Len())
	return &ConnectionResponse{Conn: client}
}

func (r *Runtime) createClient(request []byte, success SuccessCallback, failure FailureCallback) (*Client, error) {
	if r.isClosed() {
		return nil, envelope.New(envelope.KindClosing, "runtime is shutting down")
	}
	if success == nil || failure == nil {
		return nil, envelope.New(envelope.KindRequest, "success and failure callbacks are required")
	}
	req, err := connreq.Parse(request)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindRequest, err, "")
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.ConnectTimeout.Duration)
	defer cancel()
	handle, err := r.factory(ctx, req)
	if err != nil {
		return nil, err
	}

	client := newClient(r, handle, req.RequestTimeoutDuration(r.cfg.RequestTimeout.Duration), success, failure)
	id, err := r.clients.Insert(client)
	if err != nil {
		_ = handle.Close()
		if errors.Is(err, owned.ErrClosed) {
			return nil, envelope.New(envelope.KindClosing, "runtime is shutting down")
		}
		return nil, err
	}
	client.id = id
	client.logger = r.logger.With().Uint64("client", uint64(id)).Logger()
	client.logger.Debug().Str("address", req.Addresses[0].String()).Msg("client created")
	return client, nil
}

// CloseClient fails the client's outstanding commands with Closing, closes
// its session and waits for its callbacks to finish. It must be called exactly
// once per client and never from inside one of the client's callbacks.
func (r *Runtime) CloseClient(c *Client) {
	if c == nil {
		panic(&owned.Violation{Object: "client", Op: "close of nil"})
	}
	c.tag.Release("client")
	r.clients.MustTake(c.id, "client")
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CloseTimeout.Duration)
	defer cancel()
	if err := c.shutdown(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("close client")
	}
	r.collector.SetLiveClients(r.clients.Len())
}

// Rejected wraps err in a failed response for callers that cannot reach a
// runtime at all, such as a foreign caller passing an unusable buffer.
func Rejected(err error) *ConnectionResponse {
	return &ConnectionResponse{Error: envelope.Of(err)}
}

// FreeConnectionResponse releases resp and its nested error. The client, if
// any, stays open.
func FreeConnectionResponse(resp *ConnectionResponse) {
	if resp == nil {
		panic(&owned.Violation{Object: "connection response", Op: "release of nil"})
	}
	resp.tag.Release("connection response")
	if resp.Error != nil {
		envelope.Free(resp.Error)
	}
	resp.Conn = nil
	resp.Error = nil
}

// FreeError releases an envelope delivered through a failure callback.
func FreeError(e *envelope.Envelope) {
	envelope.Free(e)
}

func (r *Runtime) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Shutdown stops accepting clients, fails the outstanding commands of every
// live client with Closing and drains the worker pool. Clients stay valid
// handles: the host still closes each of them, and commands issued on them
// fail with Closing.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	var errs []error
	for _, c := range r.clients.Close() {
		if err := c.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("client %d: %w", c.id, err))
		}
	}
	if err := r.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain pool: %w", err))
	}
	r.logger.Debug().Msg("runtime stopped")
	r.cleanup()
	return errors.Join(errs...)
}

var (
	defaultMu      sync.Mutex
	defaultRuntime *Runtime
)

// Default returns the process-wide runtime, creating it on first use from
// the file named by KVBRIDGE_CONFIG. Every client created through the C
// surface shares its pool.
func Default() (*Runtime, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRuntime != nil {
		return defaultRuntime, nil
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	r, err := New(WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	defaultRuntime = r
	return r, nil
}

// ShutdownDefault shuts the process-wide runtime down. The next call to
// Default creates a fresh one.
func ShutdownDefault(ctx context.Context) error {
	defaultMu.Lock()
	r := defaultRuntime
	defaultRuntime = nil
	defaultMu.Unlock()
	if r == nil {
		return nil
	}
	return r.Shutdown(ctx)
}
