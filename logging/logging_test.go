package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.tickamp.dev/bootstrap/config"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := stdout
	stdout = &buf
	t.Cleanup(func() {
		stdout = previous
		require.NoError(t, Init(config.DefaultLogging()))
	})
	return &buf
}

func TestConsoleThreshold(t *testing.T) {
	buf := captureStdout(t)
	cfg := config.DefaultLogging()
	cfg.Level = config.LevelDebug
	cfg.Console.Threshold = config.LevelWarn
	require.NoError(t, Init(cfg))

	log := Named("test")
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "logger=test")
}

func TestNamedLevelOverride(t *testing.T) {
	buf := captureStdout(t)
	cfg := config.DefaultLogging()
	cfg.Loggers = map[string]string{"chatty": config.LevelDebug, "quiet": config.LevelOff}
	require.NoError(t, Init(cfg))

	Named("chatty").Debug("debug from chatty")
	Named("other").Debug("debug from other")
	Named("quiet").Error("error from quiet")

	assert.Contains(t, buf.String(), "debug from chatty")
	assert.NotContains(t, buf.String(), "debug from other")
	assert.NotContains(t, buf.String(), "error from quiet")
}

func TestJSONFormat(t *testing.T) {
	buf := captureStdout(t)
	cfg := config.DefaultLogging()
	cfg.Console.LogFormat = "json"
	cfg.Console.TimeZone = "Europe/Paris"
	require.NoError(t, Init(cfg))

	Named("json").WithField("port", 8080).Info("listening")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "listening", line["msg"])
	assert.Equal(t, "json", line["logger"])
	assert.EqualValues(t, 8080, line["port"])
}

func TestFileSink(t *testing.T) {
	captureStdout(t)
	path := filepath.Join(t.TempDir(), "service.log")
	cfg := config.DefaultLogging()
	cfg.Console.Enabled = false
	cfg.File.Enabled = true
	cfg.File.Archive = false
	cfg.File.CurrentLogFilename = path
	require.NoError(t, Init(cfg))

	Named("file").Info("to the file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to the file")
}

func TestInvalidConfiguration(t *testing.T) {
	cfg := config.DefaultLogging()
	cfg.Level = "LOUD"
	assert.Error(t, Init(cfg))

	cfg = config.DefaultLogging()
	cfg.Console.TimeZone = "Nowhere/Special"
	assert.Error(t, Init(cfg))
}

func TestAdapter(t *testing.T) {
	buf := captureStdout(t)
	require.NoError(t, Init(config.DefaultLogging()))

	a := NewAdapter("adapter")
	a.Info("transitioned to state", "to", "Running", "from", "Stopped")
	a.Error(errors.New("boom"), "failed", "dangling")

	out := buf.String()
	assert.Contains(t, out, "to=Running")
	assert.Contains(t, out, "from=Stopped")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, `dangling="(missing)"`)
}

func TestRequestLogger(t *testing.T) {
	buf := captureStdout(t)
	cfg := config.DefaultRequestLog()
	cfg.Console.Threshold = config.LevelError

	rl, err := NewRequestLogger(cfg)
	require.NoError(t, err)
	defer rl.Close()

	rl.WithField("status", 200).Info("GET /hello")
	assert.Contains(t, buf.String(), "GET /hello")
}
