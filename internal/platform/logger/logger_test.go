package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/datemate/taskpoll/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		want  slog.Level
		valid bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := logger.ParseLevel(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestSetup_WritesJSONAtLevel(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	buf := &logger.TestLogBuffer{}
	l, err := logger.Setup(logger.LoggerConfig{Level: "warn", Output: buf})
	require.NoError(t, err)
	require.NotNil(t, l)

	l.Info("hidden")
	l.Warn("visible", "task_id", "t-1")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0]["msg"])
	assert.Equal(t, "t-1", entries[0]["task_id"])
	assert.Same(t, l, slog.Default())
}

func TestFromContext(t *testing.T) {
	l, buf := logger.GetTestLogger(t)

	ctx := logger.WithLogger(context.Background(), l)
	ctx = logger.WithRequestID(ctx, "req-42")

	logger.FromContext(ctx).Info("hello")
	logger.AssertLogContains(t, buf, `"request_id":"req-42"`)

	assert.Equal(t, "req-42", logger.RequestID(ctx))
	assert.NotNil(t, logger.FromContext(context.Background()))
}
