// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging wraps log/slog for the covbuddy CLI and service.
//
// Logs go to stderr as text so normal CLI output on stdout stays
// machine-readable. A log directory can be configured for long-running
// modes (serve, watch); file logs are JSON, one file per service per
// day.
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    Service: "covbuddy",
//	})
//	defer logger.Close()
//	logger.Info("run ingested", "run_id", id)
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the minimum severity a logger reports.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name as it appears in log output.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls where logs go and what gets through. The zero value
// logs Info and above to stderr.
type Config struct {
	// Level is the minimum level reported.
	Level Level

	// Service is attached to every entry as the "service" attribute.
	Service string

	// LogDir, when set, additionally writes JSON logs to
	// <LogDir>/<service>_<date>.log. A leading ~ expands to the home
	// directory; the directory is created if missing.
	LogDir string

	// Quiet drops the stderr handler. Used with --quiet so machine
	// output is not interleaved with log lines; file logging still
	// applies when LogDir is set.
	Quiet bool
}

// Logger is a leveled logger writing to stderr and optionally a file.
//
// Thread Safety: safe for concurrent use.
type Logger struct {
	slog    *slog.Logger
	service string

	mu   sync.Mutex
	file *os.File
}

// New builds a logger from the configuration.
//
// A LogDir that cannot be created or opened is skipped rather than
// failing the command; logging falls back to stderr alone (or to
// nothing under Quiet).
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}

	logger := &Logger{service: config.Service}

	var handlers []slog.Handler
	if !config.Quiet {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
	}
	if config.LogDir != "" {
		if file, err := openLogFile(config.LogDir, config.Service); err == nil {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.DiscardHandler
	case 1:
		handler = handlers[0]
	default:
		handler = &teeHandler{handlers: handlers}
	}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	return logger
}

// openLogFile opens (appending) today's log file under dir.
func openLogFile(dir, service string) (*os.File, error) {
	dir = expandHome(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	if service == "" {
		service = "covbuddy"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

// Debug logs at debug level with slog key-value attributes.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at info level with slog key-value attributes.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at warn level with slog key-value attributes.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at error level with slog key-value attributes.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child logger carrying additional attributes. The
// child shares the parent's destinations; closing either closes the
// shared log file.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:    l.slog.With(args...),
		service: l.service,
		file:    l.file,
	}
}

// Slog exposes the underlying slog.Logger for components that take
// one directly (the coverage service, badger, gin).
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close flushes and closes the log file, if any. Safe to call more
// than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync log file: %w", err)
	}
	return file.Close()
}

// teeHandler forwards each record to every destination, so stderr can
// stay text while the file stays JSON.
type teeHandler struct {
	handlers []slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
