package envelope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/kvbridge/internal/owned"
)

type serverReply string

func (e serverReply) Error() string { return string(e) }
func (serverReply) RedisError()     {}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestKindValuesAreStable(t *testing.T) {
	require.EqualValues(t, 0, KindClosing)
	require.EqualValues(t, 1, KindRequest)
	require.EqualValues(t, 2, KindTimeout)
	require.EqualValues(t, 3, KindExecAbort)
	require.EqualValues(t, 4, KindConnection)
	require.False(t, Kind(5).Valid())
	require.Equal(t, "kind(9)", Kind(9).String())
}

func TestKindRetryable(t *testing.T) {
	require.True(t, KindTimeout.Retryable())
	require.True(t, KindConnection.Retryable())
	require.False(t, KindClosing.Retryable())
	require.False(t, KindRequest.Retryable())
	require.False(t, KindExecAbort.Retryable())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified", New(KindExecAbort, "aborted"), KindExecAbort},
		{"wrapped classified", fmt.Errorf("outer: %w", New(KindTimeout, "slow")), KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, KindTimeout},
		{"canceled", context.Canceled, KindClosing},
		{"client closed", redis.ErrClosed, KindClosing},
		{"exec abort reply", serverReply("EXECABORT Transaction discarded because of previous errors."), KindExecAbort},
		{"tx failed", redis.TxFailedErr, KindExecAbort},
		{"wrong type reply", serverReply("WRONGTYPE Operation against a key holding the wrong kind of value"), KindRequest},
		{"refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindConnection},
		{"eof", io.EOF, KindConnection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("dial: %w", Wrap(KindConnection, io.EOF, "node 1"))
	require.ErrorIs(t, err, ErrConnection)
	require.NotErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "connection error: node 1: EOF", errors.Unwrap(err).Error())
}

func TestEnvelopeFreeOnce(t *testing.T) {
	before := Outstanding()
	env := Of(New(KindRequest, "bad port %d", 0))
	require.Equal(t, before+1, Outstanding())
	require.Equal(t, KindRequest, env.Kind())
	require.Equal(t, "request error: bad port 0", env.Message())

	Free(env)
	require.Equal(t, before, Outstanding())

	require.PanicsWithError(t, (&owned.Violation{Object: "error envelope", Op: "release"}).Error(), func() {
		Free(env)
	})
	require.Panics(t, func() { _ = env.Message() })
}
