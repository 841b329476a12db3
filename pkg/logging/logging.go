// Package logging provides the component-scoped loggers used across the
// proxy, following the bracket-prefixed log.Logger style the rest of the
// codebase uses (no structured-logging library is involved).
package logging

import (
	"fmt"
	"log"
	"os"
)

// Level controls which messages a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a component-prefixed wrapper around the standard logger.
type Logger struct {
	std   *log.Logger
	level Level
}

// New returns the root logger at the given level, writing to stderr.
func New(level Level) *Logger {
	return &Logger{
		std:   log.New(os.Stderr, "", log.LstdFlags),
		level: level,
	}
}

// With returns a child logger tagged with the given component name, e.g.
// logger.With("tracker").Info("polled L1")  ->
// "[tracker] 2024/01/02 15:04:05 polled L1".
func (l *Logger) With(component string) *Logger {
	return &Logger{
		std:   log.New(l.std.Writer(), fmt.Sprintf("[%s] ", component), log.LstdFlags),
		level: l.level,
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.std.Printf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= LevelInfo {
		l.std.Printf(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= LevelWarn {
		l.std.Printf("WARN "+format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= LevelError {
		l.std.Printf("ERROR "+format, args...)
	}
}

// Fatal logs at error level and terminates the process. Used only at
// startup, never from a request-handling goroutine.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.std.Fatalf(format, args...)
}
