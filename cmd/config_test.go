package cmd

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/arena"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "lasso", configBaseName)
	assert.Equal(t, "lasso.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "threads", threadsFlagName)
	assert.Equal(t, "arena.threads", threadsConfigKey)
	assert.Equal(t, "execute.task", taskConfigKey)
	assert.Equal(t, ".lasso", defaultReportsDir)
	assert.Equal(t, "LASSO", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, 1, viper.GetInt(configVersionKey))
	assert.Equal(t, "local", viper.GetString(modeConfigKey))
	assert.Equal(t, "Execute", viper.GetString(taskConfigKey))
	assert.Equal(t, arena.DefaultConfig().StatementTimeout, viper.GetDuration(timeoutConfigKey))
	assert.Equal(t, arena.DefaultConfig().AdaptationLimit, viper.GetInt(adaptationLimitConfigKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelInfo))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var stderr bytes.Buffer

	configureLogger(consoleLogFilename, false, &stderr)
	slog.Info("console line", "k", "v")
	slog.Debug("hidden")
	assert.Contains(t, stderr.String(), "console line")
	assert.NotContains(t, stderr.String(), "hidden")

	configureLogger(consoleLogFilename, true, &stderr)
	slog.Debug("shown")
	assert.Contains(t, stderr.String(), "shown")

	logFile := filepath.Join(t.TempDir(), "lasso.log")
	configureLogger(logFile, false, &stderr)
	slog.Info("file line")
	require.FileExists(t, logFile)
	require.NotNil(t, globalLogger)
}
