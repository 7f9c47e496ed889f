// Package logging installs the process-wide slog default handler.
//
// Grounded on the teacher's cmd/scanner/main.go setupLogger.
package logging

import (
	"log/slog"
	"os"
)

// Setup configures slog's default logger with the given level and format
// ("json" or anything else for text) and installs it via
// slog.SetDefault.
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
