// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging builds the loggers used by the programs.
package logging

import (
	"strings"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logger type passed around the programs.
type Logger = golog.Logger

// NewLoggerConfig returns the console logger config: no stacktraces, ISO8601
// timestamps, colored levels.
func NewLoggerConfig(level zapcore.Level) zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a logger named name that logs at level ("debug",
// "info", "warn" or "error"). An empty level means info. If the level cannot
// be parsed the logger falls back to info and reports it.
func NewLogger(name, level string) Logger {
	lvl := zapcore.InfoLevel
	var parseErr error
	if strings.TrimSpace(level) != "" {
		lvl, parseErr = zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if parseErr != nil {
			lvl = zapcore.InfoLevel
		}
	}

	l, err := NewLoggerConfig(lvl).Build()
	if err != nil {
		return golog.NewLogger(name)
	}
	logger := l.Sugar().Named(name)
	if parseErr != nil {
		logger.Warnw("unknown log level, using info", "level", level)
	}
	return logger
}
