package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCloser struct{ closed bool }

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("boom")
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		out = append(out, entry)
	}
	return out
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false, true)

	LogError(logger, "analysis failed", errors.New("no volume"), slog.String("intersection_id", "X1"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "analysis failed", lines[0]["msg"])
	assert.Equal(t, "no volume", lines[0]["error"])
	assert.Equal(t, "X1", lines[0]["intersection_id"])
}

func TestLogHTTPRequestLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		LogHTTPRequest(NewLogger(&buf, false, true), "GET", "/healthz", tt.status, 1.5)
		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, tt.level, lines[0]["level"])
		assert.Equal(t, float64(tt.status), lines[0]["status"])
		assert.Equal(t, "/healthz", lines[0]["path"])
	}
}

func TestVerboseEnablesDebug(t *testing.T) {
	var quiet, verbose bytes.Buffer
	NewLogger(&quiet, false, false).Debug("hidden")
	NewLogger(&verbose, true, false).Debug("shown")
	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "shown")
}

func TestSafeCloseWithLogging(t *testing.T) {
	var buf bytes.Buffer
	c := &failingCloser{}
	SafeCloseWithLogging(c, NewLogger(&buf, false, true), "report_file")

	assert.True(t, c.closed)
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "report_file", lines[0]["resource"])

	assert.NotPanics(t, func() { SafeCloseWithLogging(nil, nil, "nothing") })
	assert.NotPanics(t, func() { LogOperation(nil, "noop") })
}
