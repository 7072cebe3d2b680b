package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
)

func TestNewConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, false, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("run finished", slog.Int("records", 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(2), entry["records"])
}

func TestNewVerboseText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "error", Format: "text", Output: "console"}, true, &buf)
	require.NoError(t, err)

	logger.Debug("row dropped", slog.Int("row", 3))
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "row=3")
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reconciler.log")
	var buf bytes.Buffer

	logger, err := newLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "both", FilePath: path}, false, &buf)
	require.NoError(t, err)
	logger.Info("written twice")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "written twice")
	assert.Contains(t, buf.String(), "written twice")
}

func TestNewFileOutputWithoutPath(t *testing.T) {
	_, err := New(config.LoggingConfig{Output: "file"}, false)
	assert.Error(t, err)
}

func TestRunIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "info", Format: "json"}, false, &buf)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-42")
	logger.With(slog.String("component", "test")).InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "run-42", RunID(ctx))
	assert.Equal(t, "", RunID(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
