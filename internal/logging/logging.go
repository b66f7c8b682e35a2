// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger shared by ecosort components.
//
// The chat TUI owns the terminal, so the logger writes JSON lines to the
// configured log file. One-shot commands run with --verbose also log to
// stderr at debug level.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecosort/ecosort-tui/internal/config"
)

// Options selects the logger outputs.
type Options struct {
	// Verbose forces debug level and adds stderr as an output.
	Verbose bool

	// Console adds stderr as an output without changing the level.
	Console bool
}

// New builds a production zap logger from the log section of cfg.
// A nil cfg yields a no-op logger.
func New(cfg *config.Config, opts Options) (*zap.Logger, error) {
	if cfg == nil {
		return zap.NewNop(), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Sampling = nil
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	zcfg.OutputPaths = nil
	zcfg.ErrorOutputPaths = []string{"stderr"}

	path, err := cfg.LogPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve log path: %w", err)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zcfg.OutputPaths = append(zcfg.OutputPaths, path)
	}
	if opts.Verbose || opts.Console {
		zcfg.OutputPaths = append(zcfg.OutputPaths, "stderr")
	}
	if len(zcfg.OutputPaths) == 0 {
		return zap.NewNop(), nil
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("ecosort"), nil
}

// ParseLevel maps a config level name onto a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// OrNop returns l, or a no-op logger when l is nil. Constructors call it
// so a nil *zap.Logger is always safe to pass.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
