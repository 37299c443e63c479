// Package logging configures the process-wide slog logger. Handlers and
// services log through slog's default logger; request ids are attached
// at the call sites.
package logging

import (
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to emit JSON to stdout at the
// given level.
func SetupJSON(level slog.Level) {
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)
}
