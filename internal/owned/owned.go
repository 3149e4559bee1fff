// Package owned tracks objects whose ownership crosses the foreign boundary.
//
// Every boundary allocation embeds a Tag. A Tag starts live and may be released
// exactly once; a second release or any use after release is a contract
// violation and panics with *Violation instead of being tolerated.
package owned

import (
	"fmt"
	"sync/atomic"
)

const (
	stateLive uint32 = iota
	stateReleased
)

// Violation describes a broken ownership contract (double free, use after free,
// unknown pointer). It is raised with panic.
type Violation struct {
	Object string
	Op     string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("owned: contract violation: %s on released or unknown %s", v.Op, v.Object)
}

// Tag is the ownership marker embedded in boundary objects. The zero value is live.
type Tag struct {
	state atomic.Uint32
}

// Release marks the owner as freed. It panics if the owner was already released.
func (t *Tag) Release(object string) {
	if !t.state.CompareAndSwap(stateLive, stateReleased) {
		panic(&Violation{Object: object, Op: "release"})
	}
}

// Check panics when the owner has been released.
func (t *Tag) Check(object, op string) {
	if t.state.Load() != stateLive {
		panic(&Violation{Object: object, Op: op})
	}
}

// Live reports whether the owner has not been released yet.
func (t *Tag) Live() bool {
	return t.state.Load() == stateLive
}
