package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCapture_Entries(t *testing.T) {
	capture, logger := NewLogCapture()

	logger.Debug("first", "epoch", 1)
	logger.Warn("second", "run_id", "r")

	assert.Equal(t, []string{"first", "second"}, capture.Messages(t))

	entry := capture.Find(t, "second")
	require.NotNil(t, entry)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "r", entry["run_id"])

	// JSON numbers decode as float64.
	assert.Equal(t, float64(1), capture.Find(t, "first")["epoch"])
	assert.Nil(t, capture.Find(t, "missing"))
}

func TestLogCapture_Empty(t *testing.T) {
	capture, _ := NewLogCapture()
	assert.Empty(t, capture.Entries(t))
}
