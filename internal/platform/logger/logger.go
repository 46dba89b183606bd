package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerConfig holds the settings needed to build the application logger.
type LoggerConfig struct {
	// Level is one of debug, info, warn or error (case-insensitive)
	Level string

	// Output defaults to os.Stdout
	Output io.Writer

	// AddSource includes file and line in each record
	AddSource bool
}

// ParseLevel maps a configured level name to a slog.Level.
// The boolean is false when the name is not recognised.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup creates a structured JSON logger with the configured level and sets
// it as the process default so slog's package functions use it too.
func Setup(cfg LoggerConfig) (*slog.Logger, error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		// Use a temporary text logger: the JSON one does not exist yet.
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}
