package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, Epoch(0), c.Current(), "new clock should start at 0")
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(100)
	assert.Equal(t, Epoch(100), c.Current())
	assert.Equal(t, Epoch(101), c.Advance())
}

func TestClock_Advance(t *testing.T) {
	c := NewClock()

	// First call returns 1 (increments then returns)
	assert.Equal(t, Epoch(1), c.Advance())
	assert.Equal(t, Epoch(2), c.Advance())
	assert.Equal(t, Epoch(3), c.Advance())

	assert.Equal(t, Epoch(3), c.Current())
	assert.Equal(t, Epoch(3), c.Current(), "Current does not advance")
}
