package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFileWritesRotatingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "screener.log")

	closeLogs, err := InitFile(path, slog.LevelInfo)
	require.NoError(t, err)
	t.Cleanup(func() { Init(slog.LevelInfo) })

	ForService("ingest").Info("frame dropped", "source", "golfer")
	require.NoError(t, closeLogs())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"ingest"`)
	assert.Contains(t, string(data), `"msg":"frame dropped"`)
	assert.Contains(t, string(data), `"source":"golfer"`)
}

func TestInitFileCreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "screener.log")

	closeLogs, err := InitFile(path, slog.LevelInfo)
	require.NoError(t, err)
	t.Cleanup(func() { Init(slog.LevelInfo) })
	require.NoError(t, closeLogs())

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestForServiceAttachesAttribute(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	t.Cleanup(func() { Init(slog.LevelInfo) })

	ForService("switcher").Debug("cut requested")

	assert.Contains(t, buf.String(), `"service":"switcher"`)
	assert.Contains(t, buf.String(), `"cut requested"`)
}
