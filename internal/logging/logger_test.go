package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input     string
		expected  LogLevel
		expectErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	scoped := WithRequestID(logger.WithComponent("server"), "req-1")
	scoped.Warn(context.Background(), errors.New("boom"), "lookup failed", "path", "my_crate/index.html")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "lookup failed", entry["msg"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "my_crate/index.html", entry["path"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})

	logger.Debug(context.Background(), "debug line")
	logger.Info(context.Background(), "info line")
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), nil, "warn line")
	logger.Error(context.Background(), nil, "error line")
	out := buf.String()
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	op := StartOperation(logger, "rebuild")
	duration := op.End(context.Background())

	assert.GreaterOrEqual(t, int64(duration), int64(0))
	assert.Contains(t, buf.String(), "operation=rebuild")
	assert.Contains(t, buf.String(), "Operation completed")
}
