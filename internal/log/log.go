// Package log provides the logging infrastructure for salesdesk.
//
// Loggers are plain *slog.Logger values injected through constructors -
// no package-level globals. Components add context via logger.With(),
// e.g. logger.With("component", "retriever").
//
// Usage:
//
//	logger := log.New(log.Config{Level: slog.LevelDebug, JSON: true})
//	store := kb.NewStore(path, size, logger.With("component", "kb"))
//
//	// In tests:
//	logger := log.NewNop()
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is an alias for *slog.Logger so components can declare the
// dependency without importing log/slog directly.
type Logger = *slog.Logger

// Config defines logger options.
type Config struct {
	// Level is the minimum level to emit. Default: slog.LevelInfo.
	Level slog.Level

	// JSON switches output to JSON records (for serve mode). Default: text.
	JSON bool

	// AddSource includes source file positions in records. Default: false.
	AddSource bool
}

// New creates a logger writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Useful in tests for
// capturing output to a buffer.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards everything. Tests only -
// production code should never silently drop logs.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a level name ("debug", "info", "warn", "error")
// to a slog.Level. Unknown names fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
