package envelope

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Error is the classified Go error used inside the core. It is converted into
// an Envelope when it has to cross the boundary.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

// New builds a classified error with a formatted detail message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and a short detail to cause.
func Wrap(kind Kind, cause error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && (t.Detail == "" || t.Detail == e.Detail)
	}
	return false
}

var (
	ErrClosing    = &Error{Kind: KindClosing}
	ErrRequest    = &Error{Kind: KindRequest}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrExecAbort  = &Error{Kind: KindExecAbort}
	ErrConnection = &Error{Kind: KindConnection}
)

// Classify maps an arbitrary error onto the boundary taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindRequest
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return KindClosing
	}
	if errors.Is(err, redis.TxFailedErr) {
		return KindExecAbort
	}
	var serverErr redis.Error
	if errors.As(err, &serverErr) {
		if strings.HasPrefix(serverErr.Error(), "EXECABORT") {
			return KindExecAbort
		}
		return KindRequest
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	// dial failures, resets, EOF and anything unrecognised
	return KindConnection
}

// FromError classifies err unless it already is an *Error.
func FromError(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return &Error{Kind: Classify(err), Cause: err}
}
