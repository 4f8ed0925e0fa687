package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"productivity-hub/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"空字符串默认info", "", zapcore.InfoLevel, false},
		{"debug", "debug", zapcore.DebugLevel, false},
		{"大写WARN", "WARN", zapcore.WarnLevel, false},
		{"warning别名", "warning", zapcore.WarnLevel, false},
		{"error", " error ", zapcore.ErrorLevel, false},
		{"未知级别", "verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.log")

	log, err := New(config.LogConfig{
		Level:    "info",
		Format:   "console",
		Filename: path,
		MaxSize:  1,
	})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("hello", zap.String("module", "todo"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), "文件中只有一行JSON日志")
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "todo", entry["module"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
