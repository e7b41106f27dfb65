package store

import (
	"log/slog"
	"testing"
)

// testWriter adapts t.Log to io.Writer for slog handlers.
type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// testLogger creates a debug-level logger that writes to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testWriter{t: t},
		&slog.HandlerOptions{Level: slog.LevelDebug}))
}
