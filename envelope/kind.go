package envelope

import "fmt"

// Kind classifies a failure crossing the boundary. The numeric values are part
// of the C ABI and must never be renumbered.
type Kind uint32

const (
	// KindClosing reports an operation attempted while the client or runtime shuts down.
	KindClosing Kind = 0
	// KindRequest reports invalid caller input. Not retryable without correction.
	KindRequest Kind = 1
	// KindTimeout reports an exceeded deadline. Retryable.
	KindTimeout Kind = 2
	// KindExecAbort reports a command aborted by the server mid-execution.
	KindExecAbort Kind = 3
	// KindConnection reports a transport level failure. Retryable after reconnecting.
	KindConnection Kind = 4
)

var kindNames = [...]string{
	KindClosing:    "closing",
	KindRequest:    "request",
	KindTimeout:    "timeout",
	KindExecAbort:  "exec_abort",
	KindConnection: "connection",
}

// String returns the lower-case name used in logs and metric labels.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k <= KindConnection
}

// Retryable reports whether a caller may retry the operation unchanged.
// ExecAbort depends on idempotence and is left to the caller.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindConnection
}
