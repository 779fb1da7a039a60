package engine

import (
	"io"
	"log/slog"
	"maps"
)

// cells is a tiny keyed state used to exercise the engine.
type cells struct {
	v      map[string]int
	epochs []Epoch // epochs seen by Apply, in order
}

func newCells() *cells {
	return &cells{v: make(map[string]int)}
}

func (c *cells) clone() *cells {
	return &cells{
		v:      maps.Clone(c.v),
		epochs: append([]Epoch(nil), c.epochs...),
	}
}

// setTx writes fixed values to keys. Two setTx collide iff they share a key.
type setTx struct {
	writes map[string]int
	err    error
}

func set(key string, val int) *setTx {
	return &setTx{writes: map[string]int{key: val}}
}

func failing(key string, err error) *setTx {
	return &setTx{writes: map[string]int{key: 0}, err: err}
}

func (tx *setTx) Apply(c *cells, epoch Epoch) error {
	c.epochs = append(c.epochs, epoch)
	if tx.err != nil {
		return tx.err
	}
	for k, v := range tx.writes {
		c.v[k] = v
	}
	return nil
}

func (tx *setTx) IsCollisionSafeWith(other *setTx) bool {
	for k := range tx.writes {
		if _, ok := other.writes[k]; ok {
			return false
		}
	}
	return true
}

type cellEngine = Engine[*cells, string, *setTx]

// always returns a reducer that proposes tx for every input.
func always(tx *setTx) Reducer[*cells, string, *setTx] {
	return ReducerFunc[*cells, string, *setTx](func(*cells, string) (*setTx, bool) {
		return tx, true
	})
}

// on returns a reducer that proposes tx only for the given input.
func on(input string, tx *setTx) Reducer[*cells, string, *setTx] {
	return ReducerFunc[*cells, string, *setTx](func(_ *cells, in string) (*setTx, bool) {
		return tx, in == input
	})
}

func never() Reducer[*cells, string, *setTx] {
	return ReducerFunc[*cells, string, *setTx](func(*cells, string) (*setTx, bool) {
		return nil, false
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCellEngine(c *cells, opts ...Option) *cellEngine {
	base := []Option{
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-test")),
	}
	return New[*cells, string, *setTx](c, append(base, opts...)...)
}
