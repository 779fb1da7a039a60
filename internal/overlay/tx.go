package overlay

import (
	"fmt"

	"github.com/roach88/txbatch/internal/engine"
)

// Kind selects the variant of a Tx.
type Kind int

const (
	KindWrap Kind = iota + 1
	KindAllow
	KindDeny
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindWrap:
		return "wrap"
	case KindAllow:
		return "allow"
	case KindDeny:
		return "deny"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Tx is one overlay transaction: a wrapped inner transaction, or an allow
// or deny marker for an action.
type Tx[A comparable, S any, T engine.Transaction[S, T]] struct {
	kind   Kind
	action A
	inner  T
}

// Wrap returns a transaction applying inner to the inner state.
func Wrap[A comparable, S any, T engine.Transaction[S, T]](inner T) *Tx[A, S, T] {
	return &Tx[A, S, T]{kind: KindWrap, inner: inner}
}

// Allow returns a transaction marking a allowed for the current epoch.
func Allow[A comparable, S any, T engine.Transaction[S, T]](a A) *Tx[A, S, T] {
	return &Tx[A, S, T]{kind: KindAllow, action: a}
}

// Deny returns a transaction marking a denied for the current epoch.
func Deny[A comparable, S any, T engine.Transaction[S, T]](a A) *Tx[A, S, T] {
	return &Tx[A, S, T]{kind: KindDeny, action: a}
}

// Kind returns the variant.
func (tx *Tx[A, S, T]) Kind() Kind {
	return tx.kind
}

// Action returns the marked action. Zero for KindWrap.
func (tx *Tx[A, S, T]) Action() A {
	return tx.action
}

// Inner returns the wrapped transaction and true for KindWrap.
func (tx *Tx[A, S, T]) Inner() (T, bool) {
	return tx.inner, tx.kind == KindWrap
}

// Apply resets the markers on an epoch boundary, then runs the variant.
// Marker inserts are idempotent.
func (tx *Tx[A, S, T]) Apply(s *State[A, S], epoch engine.Epoch) error {
	s.sync(epoch)

	switch tx.kind {
	case KindWrap:
		if err := tx.inner.Apply(s.Inner, epoch); err != nil {
			return fmt.Errorf("wrapped transaction: %w", err)
		}
	case KindAllow:
		s.allow(tx.action)
	case KindDeny:
		s.deny(tx.action)
	default:
		return fmt.Errorf("overlay: unknown transaction kind %s", tx.kind)
	}
	return nil
}

// IsCollisionSafeWith is false only when both are Wrap and the inner
// transactions collide.
func (tx *Tx[A, S, T]) IsCollisionSafeWith(other *Tx[A, S, T]) bool {
	if tx.kind != KindWrap || other.kind != KindWrap {
		return true
	}
	return tx.inner.IsCollisionSafeWith(other.inner)
}

// String formats the transaction for logs.
func (tx *Tx[A, S, T]) String() string {
	if tx.kind == KindWrap {
		return fmt.Sprintf("wrap(%v)", tx.inner)
	}
	return fmt.Sprintf("%s(%v)", tx.kind, tx.action)
}
