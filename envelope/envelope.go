package envelope

import (
	"sync/atomic"

	"github.com/timzifer/kvbridge/internal/owned"
)

// Envelope is the boundary-safe form of a failure. It is allocated by the
// core and released exactly once by the host through Free.
type Envelope struct {
	tag     owned.Tag
	message string
	kind    Kind
}

var outstanding atomic.Int64

// NewEnvelope allocates an envelope from a classified error.
func NewEnvelope(err *Error) *Envelope {
	if err == nil {
		err = New(KindRequest, "unknown error")
	}
	outstanding.Add(1)
	return &Envelope{message: err.Error(), kind: err.Kind}
}

// Of classifies err and allocates an envelope for it.
func Of(err error) *Envelope {
	return NewEnvelope(FromError(err))
}

// Message returns the owned message. Reading a released envelope panics.
func (e *Envelope) Message() string {
	e.tag.Check("error envelope", "read")
	return e.message
}

// Kind returns the classification. Reading a released envelope panics.
func (e *Envelope) Kind() Kind {
	e.tag.Check("error envelope", "read")
	return e.kind
}

// Free releases the envelope and its message. A second Free panics.
func Free(e *Envelope) {
	if e == nil {
		panic(&owned.Violation{Object: "error envelope", Op: "release of nil"})
	}
	e.tag.Release("error envelope")
	e.message = ""
	outstanding.Add(-1)
}

// Outstanding reports how many envelopes were handed out and not yet freed.
func Outstanding() int64 {
	return outstanding.Load()
}
