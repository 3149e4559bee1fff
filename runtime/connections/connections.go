package connections

import (
	"context"

	"github.com/timzifer/kvbridge/connreq"
)

// Handle represents an established session to the key-value store.
//
// Implementations must be safe for concurrent use: every client issues its
// commands through one handle from many goroutines. Close releases sockets
// and makes every later Do fail.
type Handle interface {
	Do(ctx context.Context, args ...any) (Reply, error)
	Close() error
}

// Reply is a rendered server reply. Nil reports a null reply.
type Reply []byte

// Factory establishes a session for a decoded connection request. It must
// return once ctx is done.
type Factory func(ctx context.Context, req *connreq.ConnectionRequest) (Handle, error)
