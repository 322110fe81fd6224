// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a level name to a slog.Level. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Options selects where logs go.
type Options struct {
	Level    string
	JSONFile string    // optional; JSON lines are appended to this file
	Stdout   io.Writer // defaults to os.Stdout
}

// New builds a logger writing text to stdout and, when JSONFile is set, JSON
// to that file. The returned close function releases the file.
func New(opts Options, attrs ...slog.Attr) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	closeFn := func() error { return nil }

	var h slog.Handler = slog.NewTextHandler(stdout, handlerOpts)
	if opts.JSONFile != "" {
		f, err := os.OpenFile(opts.JSONFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		h = slogmulti.Fanout(h, slog.NewJSONHandler(f, handlerOpts))
		closeFn = f.Close
	}

	logger := slog.New(h)
	if len(attrs) > 0 {
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		logger = logger.With(args...)
	}
	return logger, closeFn, nil
}

// Setup builds a logger with New and installs it as the slog default.
func Setup(opts Options, attrs ...slog.Attr) (*slog.Logger, func() error, error) {
	logger, closeFn, err := New(opts, attrs...)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
