package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/boxpack-api/internal/config"
)

// Tests in this file replace slog.Default and must not run in parallel.

func restoreDefault(t *testing.T) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
}

func TestSetup_JSON(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	l, err := setup(config.ServerConfig{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Same(t, l, slog.Default())

	l.Info("dropped")
	l.Warn("kept", slog.String("component", "test"))

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"component":"test"`)
}

func TestSetup_Console(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	l, err := setup(config.ServerConfig{LogLevel: "debug", LogFormat: "console"}, &buf)
	require.NoError(t, err)

	l.Debug("strategy swapped", slog.Uint64("version", 2))
	assert.Contains(t, buf.String(), "strategy swapped")
	assert.Contains(t, buf.String(), "version")
}

func TestSetup_Errors(t *testing.T) {
	restoreDefault(t)

	_, err := setup(config.ServerConfig{LogLevel: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = setup(config.ServerConfig{LogLevel: "info", LogFormat: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestContextHelpers(t *testing.T) {
	l, buf := NewTestLogger(t)

	assert.Nil(t, FromContext(context.Background()))
	assert.Same(t, slog.Default(), FromContextOrDefault(context.Background()))

	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	FromContextOrDefault(ctx).Info("from context", slog.String("trace_id", "abc"))
	entries := buf.Entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0]["trace_id"])
}
