// Package logging configures the process-wide slog logger for clubadmin.
// Components derive their own child loggers via logger.With("component", ...).
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup creates the text logger for the given level name, sets it as the
// slog default, and returns it. Accepted levels are "debug", "info",
// "warn"/"warning" and "error" (case-insensitive); anything else, including
// an unset CLUBADMIN_LOG_LEVEL, means info.
func Setup(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
