package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
)

// LogCapture collects JSON log lines so tests can assert on what a
// component logged.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogCapture returns a capture and a debug-level logger writing to it.
func NewLogCapture() (*LogCapture, *slog.Logger) {
	c := &LogCapture{}
	logger := slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return c, logger
}

// Write implements io.Writer.
func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Entries decodes every captured line. It fails the test on malformed output.
func (c *LogCapture) Entries(t testing.TB) []map[string]any {
	t.Helper()
	c.mu.Lock()
	data := bytes.Clone(c.buf.Bytes())
	c.mu.Unlock()

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("malformed log line %q: %v", sc.Text(), err)
		}
		out = append(out, entry)
	}
	return out
}

// Find returns the first entry with the given message, or nil.
func (c *LogCapture) Find(t testing.TB, msg string) map[string]any {
	t.Helper()
	for _, e := range c.Entries(t) {
		if e[slog.MessageKey] == msg {
			return e
		}
	}
	return nil
}

// Messages returns the message of every entry, in order.
func (c *LogCapture) Messages(t testing.TB) []string {
	t.Helper()
	entries := c.Entries(t)
	msgs := make([]string, len(entries))
	for i, e := range entries {
		msgs[i], _ = e[slog.MessageKey].(string)
	}
	return msgs
}
