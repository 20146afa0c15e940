// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pdiddy/docdeck/internal/diag"
)

// Setup installs the default slog logger: a text or JSON handler writing to
// w, wrapped in the diagnostics router so conversion jobs can capture the
// converter's warnings.
func Setup(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(diag.NewRouter(h))
	slog.SetDefault(logger)
	return logger
}

// Named returns the default logger tagged with a source namespace. Call it
// at use time, not at package init, so it picks up the handler installed by
// Setup.
func Named(name string) *slog.Logger {
	return slog.Default().With(diag.SourceKey, name)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
