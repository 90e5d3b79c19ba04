// Copyright (C) 2025 AgentDeck (oss@agentdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for AgentDeck components.
//
// The package is built on Go's standard library slog, with support for
// multi-destination output:
//
//   - Default: stdout output in JSON (the server runs in a container
//     and logs are scraped, not read by humans)
//   - Optional: file logging with automatic directory creation, for
//     bare-metal deployments without a log collector
//
// # Basic Usage
//
//	logger := logging.Default("agentdeck")
//	logger.Info("agent saved", "agentId", id)
//
// # File Logging
//
//	logger, closeFn, err := logging.New(logging.Config{
//	    Level:   "info",
//	    LogDir:  "/var/log/agentdeck",
//	    Service: "agentdeck",
//	})
//	defer closeFn()
//
// This creates log files named "{service}_{date}.log" in JSON format.
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers
// must ensure prompts, tokens, and user content are not logged
// verbatim; log metadata (lengths, counts, ids) instead.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config configures logger construction. A zero-value Config creates a
// logger that writes Info+ JSON to stdout.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", or "error".
	// Unknown values fall back to info.
	Level string

	// LogDir enables file logging when set. Logs then go to both the
	// primary writer and "{Service}_{YYYY-MM-DD}.log" in this
	// directory, created with 0750 permissions if absent.
	LogDir string

	// Service is included in every entry as the "service" attribute.
	Service string

	// Text switches the primary output from JSON to human-readable
	// text. File output stays JSON regardless.
	Text bool

	// Quiet disables the primary output; only file logging remains.
	Quiet bool

	// Writer overrides the primary destination. Defaults to stdout.
	// Tests point this at a buffer.
	Writer io.Writer
}

// ParseLevel maps a level name to its slog value. Unknown names map
// to Info rather than failing; a misconfigured level should never
// stop a service from booting.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger per cfg. The returned close function flushes and
// closes the log file, if one was opened; it is always non-nil.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	closeFn := func() error { return nil }

	primary := cfg.Writer
	if primary == nil {
		primary = os.Stdout
	}

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, primary)
	}

	if cfg.LogDir != "" {
		file, err := openLogFile(cfg.LogDir, cfg.Service)
		if err != nil {
			return nil, closeFn, err
		}
		writers = append(writers, file)
		closeFn = file.Close
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 1:
		out = writers[0]
	default:
		if len(writers) > 1 {
			out = io.MultiWriter(writers...)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Text {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger, closeFn, nil
}

// Default returns a stdout JSON logger at Info level for the named
// service. Use New when file logging or level control is needed.
func Default(service string) *slog.Logger {
	logger, _, _ := New(Config{Service: service})
	return logger
}

func openLogFile(dir, service string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}
	if service == "" {
		service = "agentdeck"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
