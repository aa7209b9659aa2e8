// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures NewLogger
type Options struct {
	// Level is debug, info, warn or error (default info)
	Level string
	// Format is text or json (default text)
	Format string
	// Writer receives log output (default os.Stderr)
	Writer io.Writer
	// Component is attached to every record when set
	Component string
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

// NewLogger returns a structured logger for opts
func NewLogger(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	logger := slog.New(handler)
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	return logger, nil
}
