package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger: structured JSON on stdout. Services take
// a *slog.Logger via options so tests can inject a silent one.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// Discard returns a logger that drops everything. For tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
