// Package command maps boundary request types to the command words sent to
// the server.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRequest reports InvalidRequest, an unknown type, or missing arguments.
	ErrInvalidRequest = errors.New("command: invalid request")
)

// String returns the request type name, or its number when unknown.
func (t RequestType) String() string {
	if e, ok := table[t]; ok {
		return e.name
	}
	return "RequestType(" + strconv.FormatUint(uint64(t), 10) + ")"
}

// Known reports whether t is a request type that can be executed.
func (t RequestType) Known() bool {
	_, ok := table[t]
	return ok && t != InvalidRequest
}

// Words returns a copy of the command words t expands to. CustomCommand has
// none because the words come from the arguments.
func (t RequestType) Words() []string {
	return append([]string(nil), table[t].words...)
}

// Build assembles the argument vector for one command.
func Build(t RequestType, args []string) ([]any, error) {
	if !t.Known() {
		return nil, fmt.Errorf("%w: request type %s", ErrInvalidRequest, t)
	}
	words := table[t].words
	if t == CustomCommand && len(args) == 0 {
		return nil, fmt.Errorf("%w: custom command requires the command name as first argument", ErrInvalidRequest)
	}
	out := make([]any, 0, len(words)+len(args))
	for _, w := range words {
		out = append(out, w)
	}
	for _, a := range args {
		out = append(out, a)
	}
	return out, nil
}

// Lookup resolves a request type by name (case-insensitive) or by number.
func Lookup(name string) (RequestType, error) {
	name = strings.TrimSpace(name)
	if n, err := strconv.ParseUint(name, 10, 32); err == nil {
		t := RequestType(n)
		if !t.Known() {
			return InvalidRequest, fmt.Errorf("%w: request type %d", ErrInvalidRequest, n)
		}
		return t, nil
	}
	for t, e := range table {
		if t != InvalidRequest && strings.EqualFold(e.name, name) {
			return t, nil
		}
	}
	return InvalidRequest, fmt.Errorf("%w: unknown request type %q", ErrInvalidRequest, name)
}
