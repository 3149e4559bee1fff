// Command libkvbridge exposes the bridge runtime as a C shared library.
//
//	go build -buildmode=c-shared -o libkvbridge.so ./cmd/libkvbridge
//
// Every pointer handed to the host is C memory tracked in a registry. Passing
// a pointer that was never handed out, or was already released, aborts the
// process.
package main

/*
#define KVBRIDGE_TYPES_ONLY
#include "kvbridge.h"

static inline void call_success(SuccessCallback cb, uintptr_t channel, const char *message) {
	cb(channel, message);
}

static inline void call_failure(FailureCallback cb, uintptr_t channel, const ErrorEnvelope *error) {
	cb(channel, error);
}
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/timzifer/kvbridge/bridge"
	commands "github.com/timzifer/kvbridge/command"
	"github.com/timzifer/kvbridge/envelope"
	"github.com/timzifer/kvbridge/internal/config"
)

var live = newRegistry()

//export create_client
func create_client(request *C.uint8_t, length C.uintptr_t, success C.SuccessCallback, failure C.FailureCallback) *C.ConnectionResponse {
	resp, rt := createClient(request, length, success, failure)

	out := (*C.ConnectionResponse)(C.calloc(1, C.size_t(unsafe.Sizeof(C.ConnectionResponse{}))))
	var nested unsafe.Pointer
	if resp.Error != nil {
		cerr := newErrorEnvelope(resp.Error)
		out.error = cerr
		nested = unsafe.Pointer(cerr)
	}
	if resp.Conn != nil {
		token := C.malloc(1)
		live.bindClient(token, rt, resp.Conn)
		out.conn_ptr = token
	}
	live.bindResponse(unsafe.Pointer(out), resp, nested)
	return out
}

func createClient(request *C.uint8_t, length C.uintptr_t, success C.SuccessCallback, failure C.FailureCallback) (*bridge.ConnectionResponse, *bridge.Runtime) {
	if success == nil || failure == nil {
		return bridge.Rejected(envelope.New(envelope.KindRequest, "success and failure callbacks are required")), nil
	}
	buf, err := requestView(unsafe.Pointer(request), uintptr(length))
	if err != nil {
		return bridge.Rejected(err), nil
	}
	rt, err := bridge.Default()
	if err != nil {
		return bridge.Rejected(envelope.Wrap(envelope.KindRequest, err, "runtime unavailable")), nil
	}
	return rt.CreateClient(buf, successTrampoline(success), failureTrampoline(failure)), rt
}

func successTrampoline(cb C.SuccessCallback) bridge.SuccessCallback {
	return func(channel uintptr, message []byte) {
		if message == nil {
			C.call_success(cb, C.uintptr_t(channel), nil)
			return
		}
		cmsg := C.CString(string(message))
		defer C.free(unsafe.Pointer(cmsg))
		C.call_success(cb, C.uintptr_t(channel), cmsg)
	}
}

func failureTrampoline(cb C.FailureCallback) bridge.FailureCallback {
	return func(channel uintptr, err *envelope.Envelope) {
		cerr := newErrorEnvelope(err)
		live.bindError(unsafe.Pointer(cerr), err)
		C.call_failure(cb, C.uintptr_t(channel), cerr)
	}
}

func newErrorEnvelope(err *envelope.Envelope) *C.ErrorEnvelope {
	out := (*C.ErrorEnvelope)(C.calloc(1, C.size_t(unsafe.Sizeof(C.ErrorEnvelope{}))))
	out.message = C.CString(err.Message())
	out.error_type = C.uint32_t(err.Kind())
	return out
}

func releaseErrorEnvelope(e *C.ErrorEnvelope) {
	C.free(unsafe.Pointer(e.message))
	C.free(unsafe.Pointer(e))
}

//export close_client
func close_client(conn unsafe.Pointer) {
	entry := live.takeClient(conn)
	entry.runtime.CloseClient(entry.client)
	C.free(conn)
}

//export free_connection_response
func free_connection_response(resp *C.ConnectionResponse) {
	if nested := live.releaseResponse(unsafe.Pointer(resp)); nested != nil {
		releaseErrorEnvelope((*C.ErrorEnvelope)(nested))
	}
	C.free(unsafe.Pointer(resp))
}

//export free_error
func free_error(e *C.ErrorEnvelope) {
	live.releaseError(unsafe.Pointer(e))
	releaseErrorEnvelope(e)
}

//export command
func command(conn unsafe.Pointer, channel C.uintptr_t, requestType C.uint32_t, argCount C.uintptr_t, args **C.char) {
	entry := live.client(conn)
	argv, err := argumentsOf(args, uintptr(argCount))
	if err != nil {
		entry.client.Reject(uintptr(channel), err)
		return
	}
	entry.client.Command(uintptr(channel), commands.RequestType(requestType), argv)
}

func argumentsOf(args **C.char, count uintptr) ([]string, error) {
	if count == 0 {
		return nil, nil
	}
	ptrs, err := pointerView(unsafe.Pointer(args), count)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			return nil, envelope.New(envelope.KindRequest, "argument %d is null", i)
		}
		out[i] = C.GoString((*C.char)(p))
	}
	return out, nil
}

//export shutdown_runtime
func shutdown_runtime() {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultCloseTimeout)
	defer cancel()
	_ = bridge.ShutdownDefault(ctx)
}

func main() {}
