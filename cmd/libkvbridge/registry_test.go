package main

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/kvbridge/bridge"
	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/internal/owned"
)

func requireViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		_, ok := r.(*owned.Violation)
		require.True(t, ok, "expected *owned.Violation, got %v", r)
	}()
	fn()
}

// allocation must not be inlined: an inlined new(uint64) may stay on the
// goroutine stack, whose address changes when the stack grows.
//
//go:noinline
func allocation() unsafe.Pointer {
	return unsafe.Pointer(new(uint64))
}

func TestRegistryFailureErrorIsReleasedOnce(t *testing.T) {
	reg := newRegistry()
	p := allocation()
	env := envelope.Of(envelope.New(envelope.KindTimeout, "slow"))
	reg.bindError(p, env)

	reg.releaseError(p)
	requireViolation(t, func() { _ = env.Kind() })
	requireViolation(t, func() { reg.releaseError(p) })
}

func TestRegistryNestedErrorIsOwnedByResponse(t *testing.T) {
	reg := newRegistry()
	respPtr, nestedPtr := allocation(), allocation()
	resp := bridge.Rejected(envelope.New(envelope.KindConnection, "refused"))
	reg.bindResponse(respPtr, resp, nestedPtr)

	requireViolation(t, func() { reg.releaseError(nestedPtr) })

	require.Equal(t, nestedPtr, reg.releaseResponse(respPtr))
	require.Nil(t, resp.Error)
	requireViolation(t, func() { reg.releaseResponse(respPtr) })
}

func TestRegistryResponseWithoutError(t *testing.T) {
	reg := newRegistry()
	respPtr := allocation()
	reg.bindResponse(respPtr, &bridge.ConnectionResponse{}, nil)
	require.Nil(t, reg.releaseResponse(respPtr))
}

func TestRegistryClientClosesOnce(t *testing.T) {
	reg := newRegistry()
	token := allocation()
	reg.bindClient(token, nil, nil)

	reg.client(token)
	reg.takeClient(token)
	requireViolation(t, func() { reg.takeClient(token) })
	requireViolation(t, func() { reg.client(token) })
	requireViolation(t, func() { reg.client(allocation()) })
}

func TestRegistryRejectsDuplicateAddress(t *testing.T) {
	reg := newRegistry()
	p := allocation()
	reg.bindError(p, envelope.Of(envelope.New(envelope.KindRequest, "a")))
	require.PanicsWithError(t, owned.ErrBound.Error(), func() {
		reg.bindError(p, envelope.Of(envelope.New(envelope.KindRequest, "b")))
	})
}
