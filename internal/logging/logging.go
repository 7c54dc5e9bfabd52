package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process wide slog logger and returns it.
// format is "json" or "text"; unknown levels fall back to info.
func Setup(level, format string) *slog.Logger {
	return setup(os.Stderr, level, format)
}

func setup(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}

	return lvl
}
