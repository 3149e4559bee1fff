package main

import (
	"math"
	"unsafe"

	"github.com/timzifer/kvbridge/envelope"
)

// requestView exposes length bytes at p without copying. The view is only
// valid for the duration of the call that received p.
func requestView(p unsafe.Pointer, length uintptr) ([]byte, error) {
	if length > math.MaxInt {
		return nil, envelope.New(envelope.KindRequest, "request length %d exceeds the addressable range", length)
	}
	if length == 0 {
		return nil, nil
	}
	if p == nil {
		return nil, envelope.New(envelope.KindRequest, "null request buffer with length %d", length)
	}
	return unsafe.Slice((*byte)(p), int(length)), nil
}

// pointerView exposes an array of count pointers at p.
func pointerView(p unsafe.Pointer, count uintptr) ([]unsafe.Pointer, error) {
	if count > math.MaxInt/unsafe.Sizeof(uintptr(0)) {
		return nil, envelope.New(envelope.KindRequest, "argument count %d exceeds the addressable range", count)
	}
	if p == nil {
		return nil, envelope.New(envelope.KindRequest, "null argument array with count %d", count)
	}
	return unsafe.Slice((*unsafe.Pointer)(p), int(count)), nil
}
