package owned

import (
	"errors"
	"sync"
)

var (
	ErrClosed     = errors.New("owned: table closed")
	ErrBound      = errors.New("owned: handle already bound")
	ErrZeroHandle = errors.New("owned: zero handle")
)

// Handle is an opaque token handed across the boundary. Zero is never valid.
type Handle uintptr

// Table maps handles to live values. Handles allocated by Insert are never
// reused, so a stale handle is always detected instead of aliasing a newer value.
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[Handle]T
	next    Handle
	closed  bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[Handle]T)}
}

// Insert stores value under a freshly allocated handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	t.next++
	h := t.next
	t.entries[h] = value
	return h, nil
}

// Bind stores value under a caller chosen handle, such as the address of a
// foreign allocation.
func (t *Table[T]) Bind(h Handle, value T) error {
	if h == 0 {
		return ErrZeroHandle
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if _, exists := t.entries[h]; exists {
		return ErrBound
	}
	t.entries[h] = value
	return nil
}

// Get returns the value for h without transferring ownership.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	value, ok := t.entries[h]
	return value, ok
}

// Take removes h and returns its value. The second Take of the same handle
// reports false.
func (t *Table[T]) Take(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	value, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	return value, ok
}

// MustTake is Take for boundary entry points: a missing handle is a contract
// violation and panics.
func (t *Table[T]) MustTake(h Handle, object string) T {
	value, ok := t.Take(h)
	if !ok {
		panic(&Violation{Object: object, Op: "release"})
	}
	return value
}

// MustGet is Get for boundary entry points.
func (t *Table[T]) MustGet(h Handle, object, op string) T {
	value, ok := t.Get(h)
	if !ok {
		panic(&Violation{Object: object, Op: op})
	}
	return value
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close rejects further inserts and returns the values that were still live.
func (t *Table[T]) Close() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	out := make([]T, 0, len(t.entries))
	for _, value := range t.entries {
		out = append(out, value)
	}
	return out
}
