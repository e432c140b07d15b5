package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger: JSON to stdout, debug level when
// REVENT_DEBUG is set.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("REVENT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
