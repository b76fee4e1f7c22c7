package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewLogger returns a slog.Logger configured for the desired verbosity
// and output format.
func NewLogger(level string, json bool) *slog.Logger {
	return newLoggerTo(os.Stdout, level, json)
}

func newLoggerTo(w io.Writer, level string, json bool) *slog.Logger {
	lvl, ok := levelNames[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
