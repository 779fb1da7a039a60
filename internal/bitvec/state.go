package bitvec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrIndexOutOfRange is returned when an exchange names an index at or
	// beyond the vector's length.
	ErrIndexOutOfRange = errors.New("bitvec: index out of range")

	// ErrSizeMismatch is returned when two vectors of different length are
	// compared bit by bit.
	ErrSizeMismatch = errors.New("bitvec: size mismatch")

	// ErrInvalidBit is returned by FromString for characters other than 0 and 1.
	ErrInvalidBit = errors.New("bitvec: invalid bit character")
)

// State is a bit vector whose length is fixed at construction.
type State struct {
	bits *bitset.BitSet
	n    uint
}

// New returns an all-zero vector of n bits.
func New(n uint) *State {
	return &State{bits: bitset.New(n), n: n}
}

// FromString parses a string of '0' and '1' characters, index 0 first.
func FromString(s string) (*State, error) {
	st := New(uint(len(s)))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			st.bits.Set(uint(i))
		default:
			return nil, fmt.Errorf("%w %q at position %d", ErrInvalidBit, c, i)
		}
	}
	return st, nil
}

// MustFromString is FromString that panics on error. For tests and fixtures.
func MustFromString(s string) *State {
	st, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return st
}

// Len returns the number of bits.
func (s *State) Len() uint {
	return s.n
}

// Get returns bit i. Panics if i is out of range.
func (s *State) Get(i uint) bool {
	s.mustIndex(i)
	return s.bits.Test(i)
}

// Set writes bit i. Panics if i is out of range.
func (s *State) Set(i uint, v bool) {
	s.mustIndex(i)
	s.bits.SetTo(i, v)
}

// String renders the vector index 0 first, e.g. "0110".
func (s *State) String() string {
	var b strings.Builder
	b.Grow(int(s.n))
	for i := uint(0); i < s.n; i++ {
		if s.bits.Test(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Clone returns an independent copy. Suitable for engine.WithRollback.
func (s *State) Clone() *State {
	return &State{bits: s.bits.Clone(), n: s.n}
}

// Equal reports whether both vectors have the same length and bits.
func (s *State) Equal(other *State) bool {
	if other == nil || s.n != other.n {
		return false
	}
	return s.bits.Equal(other.bits)
}

// Diff returns the indices at which s and other differ, ascending.
func (s *State) Diff(other *State) ([]uint, error) {
	if s.n != other.n {
		return nil, fmt.Errorf("%w: %d bits vs %d bits", ErrSizeMismatch, s.n, other.n)
	}
	x := s.bits.SymmetricDifference(other.bits)
	var out []uint
	for i, ok := x.NextSet(0); ok && i < s.n; i, ok = x.NextSet(i + 1) {
		out = append(out, i)
	}
	return out, nil
}

// exchange swaps bits a and b.
func (s *State) exchange(a, b uint) error {
	if a >= s.n || b >= s.n {
		return fmt.Errorf("%w: exchange(%d,%d) on %d bits", ErrIndexOutOfRange, a, b, s.n)
	}
	va, vb := s.bits.Test(a), s.bits.Test(b)
	s.bits.SetTo(a, vb)
	s.bits.SetTo(b, va)
	return nil
}

func (s *State) mustIndex(i uint) {
	if i >= s.n {
		panic(fmt.Sprintf("bitvec: index %d out of range [0,%d)", i, s.n))
	}
}
