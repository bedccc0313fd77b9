package observability_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/widgetprobe/internal/config"
	"github.com/xkilldash9x/widgetprobe/internal/observability"
)

// memSink collects console output for assertions.
type memSink struct {
	strings.Builder
}

func (m *memSink) Sync() error { return nil }

func (m *memSink) Write(p []byte) (int, error) {
	return m.Builder.Write(p)
}

var _ zapcore.WriteSyncer = (*memSink)(nil)

func TestNewWithWriter_ConsoleOutput(t *testing.T) {
	sink := &memSink{}
	logger, err := observability.NewWithWriter(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "widgetprobe",
	}, sink)
	require.NoError(t, err)

	logger.Info("run starting", zap.String("target", "https://staging.example.com"))

	out := sink.String()
	assert.Contains(t, out, "run starting")
	assert.Contains(t, out, "widgetprobe")
	assert.Contains(t, out, "staging.example.com")
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	sink := &memSink{}
	logger, err := observability.NewWithWriter(config.LoggerConfig{
		Level:  "warn",
		Format: "json",
	}, sink)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("visible")

	out := sink.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNewWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	sink := &memSink{}
	logger, err := observability.NewWithWriter(config.LoggerConfig{
		Level:  "shouty",
		Format: "json",
	}, sink)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("visible")

	out := sink.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNew_FileSinkIsJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "probe.log")
	sink := &memSink{}
	logger, err := observability.NewWithWriter(config.LoggerConfig{
		Level:   "info",
		Format:  "console",
		LogFile: logFile,
	}, sink)
	require.NoError(t, err)

	logger.Info("written to both sinks")
	observability.Sync(logger)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	// File output is structured regardless of the console format.
	assert.Contains(t, string(data), `"msg":"written to both sinks"`)
}
