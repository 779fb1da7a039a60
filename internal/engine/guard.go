package engine

import (
	"fmt"
	"sync/atomic"
)

// ownerGuard asserts the single-owner discipline at runtime.
//
// It is not a lock: a second caller is never made to wait. Entering while
// another call is in flight (from a different goroutine, or re-entrantly
// from a reducer or transaction) is a programming error and panics.
type ownerGuard struct {
	busy atomic.Bool
	op   atomic.Value // string
}

func (g *ownerGuard) enter(op string) {
	if !g.busy.CompareAndSwap(false, true) {
		held, _ := g.op.Load().(string)
		panic(fmt.Sprintf("engine: %s called while %s is in progress (Engine is single-owner)", op, held))
	}
	g.op.Store(op)
}

func (g *ownerGuard) exit() {
	g.busy.Store(false)
}
