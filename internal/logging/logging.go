// Package logging builds the process slog logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Options selects the handler, level and destination of a logger.
type Options struct {
	Level  string
	Format string // "text" or "json"
	// Path, when set, sends logs to a size-capped file instead of Fallback.
	Path     string
	MaxBytes int64
	Fallback io.Writer
}

// New builds a logger. The returned close func releases the log file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	w := opts.Fallback
	if w == nil {
		w = io.Discard
	}
	closeFn := func() error { return nil }

	if opts.Path != "" {
		file, err := OpenFile(opts.Path, opts.MaxBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = file
		closeFn = file.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(handler), closeFn, nil
}

// ParseLevel maps a level name to a slog level; unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
