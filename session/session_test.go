package session

import (
	"context"
	"math"
	"math/big"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/kvbridge/connreq"
	"github.com/timzifer/kvbridge/envelope"
)

func requestFor(t *testing.T, addr string) *connreq.ConnectionRequest {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 32)
	require.NoError(t, err)
	return &connreq.ConnectionRequest{
		Addresses: []connreq.NodeAddress{{Host: host, Port: uint32(port)}},
		Protocol:  connreq.ProtocolRESP2,
	}
}

func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func testOptions() Options {
	return Options{Logger: zerolog.Nop(), CommandTimeout: time.Second}
}

func TestDialAndDo(t *testing.T) {
	srv := miniredis.RunT(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := Dial(ctx, requestFor(t, srv.Addr()), testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	reply, err := s.Do(ctx, "SET", "greeting", "hello")
	require.NoError(t, err)
	require.Equal(t, "OK", string(reply))

	reply, err = s.Do(ctx, "GET", "greeting")
	require.NoError(t, err)
	require.Equal(t, "hello", string(reply))

	reply, err = s.Do(ctx, "GET", "missing")
	require.NoError(t, err)
	require.Nil(t, reply)

	reply, err = s.Do(ctx, "INCR", "counter")
	require.NoError(t, err)
	require.Equal(t, "1", string(reply))

	_, err = s.Do(ctx, "RPUSH", "list", "a", "b")
	require.NoError(t, err)
	reply, err = s.Do(ctx, "LRANGE", "list", "0", "-1")
	require.NoError(t, err)
	require.JSONEq(t, `["a","b"]`, string(reply))
}

func TestDoServerErrorIsRequestKind(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()
	s, err := Dial(ctx, requestFor(t, srv.Addr()), testOptions())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Do(ctx, "SET", "k", "v")
	require.NoError(t, err)
	_, err = s.Do(ctx, "LPUSH", "k", "x")
	require.Error(t, err)
	require.Equal(t, envelope.KindRequest, envelope.Classify(err))
}

func TestDialAuthentication(t *testing.T) {
	srv := miniredis.RunT(t)
	srv.RequireUserAuth("app", "s3cret")

	req := requestFor(t, srv.Addr())
	req.Authentication = &connreq.AuthenticationInfo{Username: "app", Password: "s3cret"}
	s, err := Dial(context.Background(), req, testOptions())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	req.Authentication.Password = "wrong"
	_, err = Dial(context.Background(), req, testOptions())
	require.ErrorIs(t, err, envelope.ErrConnection)
}

func TestDialStandaloneUsesFirstAddress(t *testing.T) {
	srv := miniredis.RunT(t)
	req := requestFor(t, srv.Addr())
	dead := requestFor(t, closedPort(t))
	req.Addresses = append(req.Addresses, dead.Addresses...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := Dial(ctx, req, testOptions())
	require.NoError(t, err)
	defer s.Close()

	reply, err := s.Do(ctx, "PING")
	require.NoError(t, err)
	require.Equal(t, "PONG", string(reply))
}

func TestDialClosedPortIsConnectionKind(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, requestFor(t, closedPort(t)), testOptions())
	require.ErrorIs(t, err, envelope.ErrConnection)
}

func TestDialSilentServerIsTimeoutKind(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				close(accepted)
				return
			}
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for conn := range accepted {
			_ = conn.Close()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = Dial(ctx, requestFor(t, ln.Addr().String()), testOptions())
	require.ErrorIs(t, err, envelope.ErrTimeout)
}

func TestDialFollowsRetryStrategy(t *testing.T) {
	srv := miniredis.RunT(t)
	var attempts atomic.Int32
	dialer := &net.Dialer{}
	opts := testOptions()
	opts.Dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if attempts.Add(1) <= 2 {
			return nil, &net.OpError{Op: "dial", Net: network, Err: errRefused}
		}
		return dialer.DialContext(ctx, network, addr)
	}

	req := requestFor(t, srv.Addr())
	req.RetryStrategy = &connreq.RetryStrategy{NumberOfRetries: 3, Factor: 1, ExponentBase: 2}
	s, err := Dial(context.Background(), req, opts)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, int32(3), attempts.Load())

	attempts.Store(-10)
	req.RetryStrategy = &connreq.RetryStrategy{NumberOfRetries: 1, Factor: 1, ExponentBase: 2}
	_, err = Dial(context.Background(), req, opts)
	require.ErrorIs(t, err, envelope.ErrConnection)
	require.GreaterOrEqual(t, attempts.Load(), int32(-8))
}

type refusedError struct{}

func (refusedError) Error() string { return "connection refused" }

var errRefused = refusedError{}

func TestRender(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "value", "value"},
		{"integer", int64(-42), "-42"},
		{"double", 3.25, "3.25"},
		{"small double", 0.000001, "0.000001"},
		{"infinity", math.Inf(1), "inf"},
		{"bool", true, "true"},
		{"big number", new(big.Int).Lsh(big.NewInt(1), 70), "1180591620717411303424"},
		{"array", []any{"a", int64(1), nil}, `["a",1,null]`},
		{"map", map[any]any{"field": "v", int64(2): 1.5}, `{"2":1.5,"field":"v"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Render(tc.value)
			require.NoError(t, err)
			require.Equal(t, tc.want, string(got))
		})
	}

	got, err := Render(nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = Render("")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	_, err = Render(struct{}{})
	require.ErrorIs(t, err, ErrUnsupportedReply)
}
