// Package log configures the process-wide slog logger for the
// visionmate daemon and exposes the few helpers the binary needs.
package log

import (
	"log/slog"
	"os"
	"sync"
)

var (
	root *slog.Logger
	once sync.Once
)

// Init sets up the shared logger at the given level ("debug", "info",
// "warn", "error"; anything else means info). Repeated calls are
// no-ops: the first level wins for the life of the process.
func Init(level string) {
	once.Do(func() {
		lvl := slog.LevelInfo
		switch level {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		}

		opts := &slog.HandlerOptions{Level: lvl}

		// JSON when deployed, human-readable text otherwise.
		var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
		if os.Getenv("GO_ENV") == "production" {
			h = slog.NewJSONHandler(os.Stdout, opts)
		}

		root = slog.New(h)
		slog.SetDefault(root)
	})
}

// L returns the shared logger, initializing it at info level if Init
// was never called.
func L() *slog.Logger {
	if root == nil {
		Init("info")
	}
	return root
}

// With returns a child logger carrying the given attributes. Used by
// subsystems to tag their output, e.g. With("component", "main").
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Warn logs a warning on the shared logger.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}
