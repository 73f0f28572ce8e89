// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package util

import (
	"log/slog"
	"os"
)

var Logger = newLogger()

// newLogger builds the package logger with the appropriate log level.
// Set COLDPATH_DEBUG=1 environment variable to enable debug logging.
func newLogger() *slog.Logger {
	level := slog.LevelInfo // Default: only show Info, Warn, Error

	// Check for debug mode
	if os.Getenv("COLDPATH_DEBUG") != "" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler)
}

// Debug logs a debug message (only shown when COLDPATH_DEBUG is set)
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
