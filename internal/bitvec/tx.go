package bitvec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/txbatch/internal/engine"
	"github.com/roach88/txbatch/internal/ir"
)

// Exchange swaps the bits at A and B.
type Exchange struct {
	A uint `json:"a" yaml:"a"`
	B uint `json:"b" yaml:"b"`
}

// String formats the op as "exchange(a,b)".
func (x Exchange) String() string {
	return fmt.Sprintf("exchange(%d,%d)", x.A, x.B)
}

// Tx is an ordered sequence of exchanges applied as one transaction.
type Tx struct {
	ops []Exchange
}

// NewTx returns a transaction executing ops in order.
func NewTx(ops ...Exchange) *Tx {
	return &Tx{ops: append([]Exchange(nil), ops...)}
}

// Append adds an exchange at the end. Must not be called once the Tx has
// been proposed to an engine.
func (tx *Tx) Append(a, b uint) *Tx {
	tx.ops = append(tx.ops, Exchange{A: a, B: b})
	return tx
}

// Ops returns a copy of the exchanges in execution order.
func (tx *Tx) Ops() []Exchange {
	return append([]Exchange(nil), tx.ops...)
}

// TouchingMask returns every index any exchange reads or writes, ascending
// and without duplicates. Indices are not checked against any vector length.
func (tx *Tx) TouchingMask() []uint {
	mask := make([]uint, 0, 2*len(tx.ops))
	for _, op := range tx.ops {
		mask = append(mask, op.A, op.B)
	}
	slices.Sort(mask)
	return slices.Compact(mask)
}

// Apply executes each exchange in order. An out-of-range index stops the
// transaction with ErrIndexOutOfRange; earlier exchanges stay applied.
func (tx *Tx) Apply(s *State, _ engine.Epoch) error {
	for i, op := range tx.ops {
		if err := s.exchange(op.A, op.B); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	return nil
}

// IsCollisionSafeWith reports whether the touching masks are disjoint.
func (tx *Tx) IsCollisionSafeWith(other *Tx) bool {
	a, b := tx.TouchingMask(), other.TouchingMask()
	for len(a) > 0 && len(b) > 0 {
		switch {
		case a[0] == b[0]:
			return false
		case a[0] < b[0]:
			a = a[1:]
		default:
			b = b[1:]
		}
	}
	return true
}

// String formats the transaction as "[exchange(0,1) exchange(2,3)]".
func (tx *Tx) String() string {
	parts := make([]string, len(tx.ops))
	for i, op := range tx.ops {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

var _ engine.Transaction[*State, *Tx] = (*Tx)(nil)

// EncodeTx lowers tx to an array of {"a","b"} objects.
func EncodeTx(tx *Tx) ir.Value {
	arr := make(ir.Array, len(tx.ops))
	for i, op := range tx.ops {
		arr[i] = ir.Object{"a": ir.Int(op.A), "b": ir.Int(op.B)}
	}
	return arr
}

// Encoder returns the record encoder for bit-vector engines.
func Encoder() engine.Encoder[string, *Tx] {
	return engine.Encoder[string, *Tx]{
		Input: func(s string) ir.Value { return ir.String(s) },
		Tx:    EncodeTx,
	}
}
