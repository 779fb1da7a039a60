package engine

// Clock is the engine's logical step counter.
//
// Every Step advances it exactly once, before derivation, whatever the
// outcome. It never decreases and never reads wall-clock time.
//
// Clock is not safe for concurrent use; it is owned by one Engine.
type Clock struct {
	epoch Epoch
}

// NewClock creates a clock at epoch 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at a specific epoch.
// The next call to Advance returns start+1.
func NewClockAt(start Epoch) *Clock {
	return &Clock{epoch: start}
}

// Advance increments the clock and returns the new epoch.
func (c *Clock) Advance() Epoch {
	c.epoch++
	return c.epoch
}

// Current returns the current epoch without advancing.
func (c *Clock) Current() Epoch {
	return c.epoch
}
