// Package logging builds the slog loggers used across phrasedeck.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/chaz8081/phrasedeck/internal/config"
)

// New returns a logger writing to w at the given level. format is "text"
// or "json"; an empty format means text.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(level)}
	opts.AddSource = opts.Level == slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

// FromConfig builds a stderr logger from the application config.
func FromConfig(cfg *config.Config) (*slog.Logger, error) {
	return New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// IsTerminal reports whether w is an interactive terminal. Progress bars
// are only drawn when it is.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
