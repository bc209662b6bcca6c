// Package logging builds the process logger: a console sink and a rotating
// file sink with independent levels.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultFileName   = "arxiv2notion.log"
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 10
)

type Options struct {
	ConsoleLevel string
	FileLevel    string
	// Dir holds the log file. Empty disables the file sink.
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	// Console defaults to os.Stdout.
	Console io.Writer
}

// ParseLevel accepts debug, info, warn/warning, error and critical in any case.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "critical":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
}

// New returns the logger and a cleanup closing the file sink.
func New(opts Options) (*slog.Logger, func() error, error) {
	cleanup := func() error { return nil }

	consoleLevel, err := ParseLevel(opts.ConsoleLevel)
	if err != nil {
		return nil, cleanup, fmt.Errorf("console level: %w", err)
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: consoleLevel})

	if opts.Dir == "" {
		return slog.New(consoleHandler), cleanup, nil
	}

	fileLevel, err := ParseLevel(opts.FileLevel)
	if err != nil {
		return nil, cleanup, fmt.Errorf("file level: %w", err)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, cleanup, fmt.Errorf("create log directory: %w", err)
	}

	name := opts.FileName
	if name == "" {
		name = DefaultFileName
	}
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeMB
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, name),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
	fileHandler := slog.NewTextHandler(rotator, &slog.HandlerOptions{Level: fileLevel, AddSource: true})

	return slog.New(fanout{consoleHandler, fileHandler}), rotator.Close, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
