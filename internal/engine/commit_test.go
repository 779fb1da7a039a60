package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommitMode(t *testing.T) {
	tests := []struct {
		in   string
		want CommitMode
	}{
		{"", CommitBestEffort},
		{"best-effort", CommitBestEffort},
		{"rollback", CommitRollback},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommitMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommitMode_Unknown(t *testing.T) {
	_, err := ParseCommitMode("snapshot")
	assert.ErrorContains(t, err, `unknown commit mode "snapshot"`)
}

func TestCommitMode_StringRoundTrip(t *testing.T) {
	for _, m := range []CommitMode{CommitBestEffort, CommitRollback} {
		parsed, err := ParseCommitMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	assert.Equal(t, "commit-mode(7)", CommitMode(7).String())
}
