package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copymate/internal/logging"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]logging.Format{
		"text":  logging.FormatText,
		"TINT":  logging.FormatText,
		"human": logging.FormatText,
		"json":  logging.FormatJSON,
		"":      logging.FormatAuto,
		"xml":   logging.FormatAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, logging.ParseFormat(in), "input %q", in)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("nonsense"))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.Resolve(true, ""))
	assert.Equal(t, slog.LevelInfo, logging.Resolve(false, ""))
	assert.Equal(t, slog.LevelError, logging.Resolve(true, "error"))
}

func TestNewHandler_JSONForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	h := logging.NewHandler(&buf, logging.FormatAuto, slog.LevelInfo)

	slog.New(h).Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewHandler_TextForced(t *testing.T) {
	var buf bytes.Buffer
	h := logging.NewHandler(&buf, logging.FormatText, slog.LevelDebug)

	slog.New(h).Debug("visible")

	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", logging.Preview("short", 10))
	assert.Equal(t, "a b c", logging.Preview("a\nb\tc", 10))
	assert.Equal(t, "héll…", logging.Preview("héllo world", 4))
}
