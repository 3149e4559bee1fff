package main

import (
	"unsafe"

	"github.com/timzifer/kvbridge/bridge"
	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/internal/owned"
)

type clientEntry struct {
	runtime *bridge.Runtime
	client  *bridge.Client
}

type responseEntry struct {
	response *bridge.ConnectionResponse
	// nested is the foreign copy of response.Error. It is released with the
	// response and never registered as a standalone error.
	nested unsafe.Pointer
}

// registry records every object handed to the host, keyed by the address of
// its foreign allocation. Unknown or already released addresses panic with
// *owned.Violation.
type registry struct {
	clients   *owned.Table[clientEntry]
	responses *owned.Table[responseEntry]
	errors    *owned.Table[*envelope.Envelope]
}

func newRegistry() *registry {
	return &registry{
		clients:   owned.NewTable[clientEntry](),
		responses: owned.NewTable[responseEntry](),
		errors:    owned.NewTable[*envelope.Envelope](),
	}
}

func addressOf(p unsafe.Pointer) owned.Handle {
	return owned.Handle(uintptr(p))
}

func mustBind[T any](table *owned.Table[T], p unsafe.Pointer, value T) {
	if err := table.Bind(addressOf(p), value); err != nil {
		panic(err)
	}
}

func (r *registry) bindClient(token unsafe.Pointer, rt *bridge.Runtime, client *bridge.Client) {
	mustBind(r.clients, token, clientEntry{runtime: rt, client: client})
}

// client returns the live client behind token for issuing commands.
func (r *registry) client(token unsafe.Pointer) clientEntry {
	return r.clients.MustGet(addressOf(token), "client", "command")
}

// takeClient unregisters token. The caller closes the client and frees token.
func (r *registry) takeClient(token unsafe.Pointer) clientEntry {
	return r.clients.MustTake(addressOf(token), "client")
}

func (r *registry) bindResponse(p unsafe.Pointer, resp *bridge.ConnectionResponse, nested unsafe.Pointer) {
	mustBind(r.responses, p, responseEntry{response: resp, nested: nested})
}

// releaseResponse unregisters p and releases the response with its nested
// error. It returns the foreign copy of that error for the caller to free.
func (r *registry) releaseResponse(p unsafe.Pointer) unsafe.Pointer {
	entry := r.responses.MustTake(addressOf(p), "connection response")
	bridge.FreeConnectionResponse(entry.response)
	return entry.nested
}

func (r *registry) bindError(p unsafe.Pointer, env *envelope.Envelope) {
	mustBind(r.errors, p, env)
}

// releaseError unregisters p and releases its envelope.
func (r *registry) releaseError(p unsafe.Pointer) {
	bridge.FreeError(r.errors.MustTake(addressOf(p), "error envelope"))
}
