// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

// Package logger wraps zerolog with a console writer suitable for a CLI.
// The default level is warn so normal runs emit only the report; verbosity
// is raised explicitly from the command line rather than through mutable
// global flags scattered over the code.
package logger

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerKey struct{}

var globalLogger zerolog.Logger

func init() {
	level := zerolog.WarnLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		parsed, err := zerolog.ParseLevel(env)
		if err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	globalLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Logger().
		Level(level)

	log.Logger = globalLogger
}

func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok {
		return l
	}
	return &globalLogger
}

func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// SetLevel updates the global log level
func SetLevel(level zerolog.Level) {
	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

// SetVerbosity maps a counted -v flag onto zerolog levels:
// 0 = warn, 1 = info, 2 = debug, 3+ = trace.
func SetVerbosity(count int) {
	switch {
	case count <= 0:
		SetLevel(zerolog.WarnLevel)
	case count == 1:
		SetLevel(zerolog.InfoLevel)
	case count == 2:
		SetLevel(zerolog.DebugLevel)
	default:
		SetLevel(zerolog.TraceLevel)
	}
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return globalLogger.Fatal()
}

// Error logs an error message
func Error() *zerolog.Event {
	return globalLogger.Error()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return globalLogger.Warn()
}

// Info logs an info message
func Info() *zerolog.Event {
	return globalLogger.Info()
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return globalLogger.Debug()
}

// Trace logs a trace message
func Trace() *zerolog.Event {
	return globalLogger.Trace()
}
