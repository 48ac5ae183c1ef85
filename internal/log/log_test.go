package log

import (
	"context"
	"testing"

	"log/slog"
)

// Init is once-per-process, so a single test drives the level check
// and the derived-logger helpers together.
func TestInit_LevelAndHelpers(t *testing.T) {
	Init("warn")

	ctx := context.Background()
	if !L().Enabled(ctx, slog.LevelWarn) {
		t.Error("Enabled(warn) = false, want true")
	}
	if L().Enabled(ctx, slog.LevelInfo) {
		t.Error("Enabled(info) = true, want false at warn level")
	}

	// Later Init calls must not change the level.
	Init("debug")
	if L().Enabled(ctx, slog.LevelDebug) {
		t.Error("Enabled(debug) = true, want first Init level kept")
	}

	if With("component", "test") == nil {
		t.Fatal("With() = nil, want derived logger")
	}
}
