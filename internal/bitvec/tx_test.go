package bitvec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txbatch/internal/ir"
)

func TestTx_ApplyExchangesInOrder(t *testing.T) {
	s := MustFromString("1000")
	tx := NewTx(Exchange{A: 0, B: 1}, Exchange{A: 1, B: 2})

	require.NoError(t, tx.Apply(s, 1))
	assert.Equal(t, "0010", s.String(), "bit 0 travels to 1, then to 2")
}

func TestTx_ApplySameIndexIsNoop(t *testing.T) {
	s := MustFromString("1010")
	require.NoError(t, NewTx(Exchange{A: 2, B: 2}).Apply(s, 1))
	assert.Equal(t, "1010", s.String())
}

func TestTx_ApplyOutOfRange(t *testing.T) {
	s := MustFromString("1000")
	tx := NewTx(Exchange{A: 0, B: 1}, Exchange{A: 3, B: 4})

	err := tx.Apply(s, 1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Contains(t, err.Error(), "op 1")
	assert.Equal(t, "0100", s.String(), "ops before the failing one stay applied")
}

func TestTx_AppendAndOps(t *testing.T) {
	tx := NewTx().Append(0, 1).Append(2, 3)
	assert.Equal(t, []Exchange{{A: 0, B: 1}, {A: 2, B: 3}}, tx.Ops())
	assert.Equal(t, "[exchange(0,1) exchange(2,3)]", tx.String())

	ops := tx.Ops()
	ops[0].A = 9
	assert.Equal(t, uint(0), tx.Ops()[0].A, "Ops returns a copy")
}

func TestTx_TouchingMask(t *testing.T) {
	mask := NewTx(Exchange{A: 5, B: 3}, Exchange{A: 3, B: 0}).TouchingMask()

	assert.Equal(t, []uint{0, 3, 5}, mask)
	assert.Empty(t, NewTx().TouchingMask())
}

func TestTx_CollisionRuleWithHugeIndices(t *testing.T) {
	huge := uint(1) << 62
	far := NewTx(Exchange{A: 2, B: huge})
	near := NewTx(Exchange{A: 0, B: 1})
	shares := NewTx(Exchange{A: huge, B: 3})

	assert.True(t, far.IsCollisionSafeWith(near))
	assert.True(t, near.IsCollisionSafeWith(far))
	assert.False(t, far.IsCollisionSafeWith(shares))
	assert.False(t, shares.IsCollisionSafeWith(far))
}

func TestTx_CollisionRule(t *testing.T) {
	tests := []struct {
		name string
		a, b *Tx
		safe bool
	}{
		{"disjoint", NewTx(Exchange{0, 1}), NewTx(Exchange{2, 3}), true},
		{"shared index", NewTx(Exchange{0, 1}), NewTx(Exchange{1, 2}), false},
		{"commuting swaps still collide", NewTx(Exchange{0, 1}), NewTx(Exchange{1, 0}), false},
		{"identical", NewTx(Exchange{0, 1}), NewTx(Exchange{0, 1}), false},
		{"empty is always safe", NewTx(), NewTx(Exchange{0, 1}), true},
		{"multi-op overlap on later op", NewTx(Exchange{0, 1}, Exchange{4, 5}), NewTx(Exchange{2, 5}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.safe, tt.a.IsCollisionSafeWith(tt.b))
			assert.Equal(t, tt.a.IsCollisionSafeWith(tt.b), tt.b.IsCollisionSafeWith(tt.a), "predicate must be symmetric")
		})
	}
}

func TestTx_DisjointTransactionsAreConfluent(t *testing.T) {
	a := NewTx(Exchange{0, 1}, Exchange{1, 2})
	b := NewTx(Exchange{3, 5})
	c := NewTx(Exchange{4, 6})
	require.True(t, a.IsCollisionSafeWith(b))
	require.True(t, a.IsCollisionSafeWith(c))
	require.True(t, b.IsCollisionSafeWith(c))

	orders := [][]*Tx{{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a}}
	var want string
	for i, order := range orders {
		s := MustFromString("1001101")
		for _, tx := range order {
			require.NoError(t, tx.Apply(s, 1))
		}
		if i == 0 {
			want = s.String()
			continue
		}
		assert.Equal(t, want, s.String(), "order %d", i)
	}
}

func TestEncodeTx(t *testing.T) {
	v := EncodeTx(NewTx(Exchange{A: 0, B: 1}, Exchange{A: 2, B: 3}))

	data, err := ir.MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":0,"b":1},{"a":2,"b":3}]`, string(data))
}
