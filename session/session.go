// Package session establishes and drives the protocol session behind a
// client handle.
package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/timzifer/kvbridge/connreq"
	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/runtime/connections"
)

// DialFunc opens the raw transport connection to one node.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Options tune how sessions are established.
type Options struct {
	Logger zerolog.Logger
	// CommandTimeout bounds socket reads and writes when a command context
	// carries no deadline.
	CommandTimeout time.Duration
	// Dialer replaces the default TCP dialer.
	Dialer DialFunc
}

// Session is an established connection to a standalone server or a cluster.
type Session struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

var _ connections.Handle = (*Session)(nil)

// NewFactory returns a connection factory producing sessions.
func NewFactory(opts Options) connections.Factory {
	return func(ctx context.Context, req *connreq.ConnectionRequest) (connections.Handle, error) {
		s, err := Dial(ctx, req, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Dial establishes a session for req. Connection attempts follow the request's
// retry strategy and stop once ctx is done. The returned error is always an
// *envelope.Error.
func Dial(ctx context.Context, req *connreq.ConnectionRequest, opts Options) (*Session, error) {
	if req == nil {
		return nil, envelope.New(envelope.KindRequest, "connection request is nil")
	}
	tlsConfig, err := buildTLSConfig(req.TLSMode)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindRequest, err, "tls")
	}

	retries := 0
	var strategy connreq.RetryStrategy
	if req.RetryStrategy != nil {
		strategy = *req.RetryStrategy
		retries = int(strategy.NumberOfRetries)
	}

	logger := opts.Logger.With().Str("address", req.Addresses[0].String()).Bool("cluster", req.ClusterModeEnabled).Logger()
	if !req.ClusterModeEnabled && len(req.Addresses) > 1 {
		logger.Debug().Int("ignored", len(req.Addresses)-1).Msg("standalone mode uses the first address only")
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := strategy.Delay(attempt)
			logger.Debug().Int("attempt", attempt).Dur("delay", delay).Err(lastErr).Msg("retrying connection")
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, establishError(ctx, lastErr)
			case <-timer.C:
			}
		}
		client := newClient(req, tlsConfig, opts)
		err := client.Ping(ctx).Err()
		if err == nil {
			logger.Debug().Int("attempt", attempt).Msg("session established")
			return &Session{client: client, logger: logger}, nil
		}
		_ = client.Close()
		lastErr = err
		if isServerReply(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, establishError(ctx, lastErr)
}

func newClient(req *connreq.ConnectionRequest, tlsConfig *tls.Config, opts Options) redis.UniversalClient {
	var username, password string
	if req.Authentication != nil {
		username = req.Authentication.Username
		password = req.Authentication.Password
	}
	protocol := 3
	if req.Protocol == connreq.ProtocolRESP2 {
		protocol = 2
	}
	ioTimeout := req.RequestTimeoutDuration(opts.CommandTimeout)

	if req.ClusterModeEnabled {
		addrs := make([]string, 0, len(req.Addresses))
		for _, addr := range req.Addresses {
			addrs = append(addrs, addr.String())
		}
		clusterOpts := &redis.ClusterOptions{
			Addrs:                 addrs,
			ClientName:            req.ClientName,
			Protocol:              protocol,
			Username:              username,
			Password:              password,
			TLSConfig:             tlsConfig,
			ReadTimeout:           ioTimeout,
			WriteTimeout:          ioTimeout,
			ContextTimeoutEnabled: true,
			MaxRetries:            -1,
		}
		if opts.Dialer != nil {
			clusterOpts.Dialer = opts.Dialer
		}
		switch req.ReadFrom {
		case connreq.ReadFromPreferReplica, connreq.ReadFromAZAffinity:
			clusterOpts.ReadOnly = true
		case connreq.ReadFromLowestLatency:
			clusterOpts.RouteByLatency = true
		}
		return redis.NewClusterClient(clusterOpts)
	}

	standalone := &redis.Options{
		Addr:                  req.Addresses[0].String(),
		ClientName:            req.ClientName,
		Protocol:              protocol,
		Username:              username,
		Password:              password,
		DB:                    int(req.DatabaseID),
		TLSConfig:             tlsConfig,
		ReadTimeout:           ioTimeout,
		WriteTimeout:          ioTimeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,
	}
	if opts.Dialer != nil {
		standalone.Dialer = opts.Dialer
	}
	return redis.NewClient(standalone)
}

// Do executes one command. A null reply yields a nil Reply and no error.
func (s *Session) Do(ctx context.Context, args ...any) (connections.Reply, error) {
	value, err := s.client.Do(ctx, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	reply, err := Render(value)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindRequest, err, "render reply")
	}
	return reply, nil
}

// Close releases all sockets of the session.
func (s *Session) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func isServerReply(err error) bool {
	var serverErr redis.Error
	return errors.As(err, &serverErr)
}

// establishError maps a failed establishment onto the boundary taxonomy.
// Handshake rejections by the server count as connection failures.
func establishError(ctx context.Context, err error) *envelope.Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return envelope.Wrap(envelope.KindTimeout, err, "connect timeout")
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return envelope.Wrap(envelope.KindClosing, err, "connect canceled")
	}
	if err == nil {
		return envelope.New(envelope.KindConnection, "connect failed")
	}
	if isServerReply(err) {
		return envelope.Wrap(envelope.KindConnection, err, "handshake rejected")
	}
	if envelope.Classify(err) == envelope.KindTimeout {
		return envelope.Wrap(envelope.KindTimeout, err, "connect timeout")
	}
	return envelope.Wrap(envelope.KindConnection, err, "connect")
}
