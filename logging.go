package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// newLogger builds the structured logger. The TUI owns the terminal, so
// records only go to a file; without one they are discarded. The
// returned close function is always non-nil.
func newLogger(path string, debug bool) (*slog.Logger, func() error, error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.New(newLogHandler(f, debug)), f.Close, nil
}

func newLogHandler(w io.Writer, debug bool) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
