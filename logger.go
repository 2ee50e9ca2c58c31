// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package yggdrasilctl

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLogValueLength limits the length of a single logged value. Longer values
// are truncated.
const MaxLogValueLength = 1024

// Logger is the pluggable logging interface used by the client.
//
// Implementations receive the call's context and structured key-value pairs.
// The package ships three implementations:
//   - NoOpLogger: discards everything (default)
//   - DefaultLogger: standard log package with a level threshold
//   - ZapLogger: adapter for go.uber.org/zap
//
// Example:
//
//	client, _ := yggdrasilctl.NewClient("localhost",
//	    yggdrasilctl.WithLogger(yggdrasilctl.NewDefaultLogger(yggdrasilctl.LogLevelDebug)))
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel is the severity threshold of a DefaultLogger
type LogLevel int

const (
	// LogLevelDebug logs everything
	LogLevelDebug LogLevel = iota
	// LogLevelInfo logs Info, Warn and Error
	LogLevelInfo
	// LogLevelWarn logs Warn and Error
	LogLevelWarn
	// LogLevelError logs Error only
	LogLevelError
	// LogLevelNone disables logging
	LogLevelNone
)

var logLevelNames = map[LogLevel]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
	LogLevelNone:  "NONE",
}

// String returns the upper-case level name
func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(l))
}

// DefaultLogger writes through the standard log package.
//
// Output format: [LEVEL] message key1=value1 key2=value2
type DefaultLogger struct {
	level LogLevel
}

// NewDefaultLogger creates a DefaultLogger logging at level and above
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

// Debug logs at debug level
func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelDebug, msg, keysAndValues)
}

// Info logs at info level
func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelInfo, msg, keysAndValues)
}

// Warn logs at warn level
func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelWarn, msg, keysAndValues)
}

// Error logs at error level
func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelError, msg, keysAndValues)
}

// log formats one line. Keys and values are sanitized; msg comes from this
// package and is written as is.
func (l *DefaultLogger) log(level LogLevel, msg string, keysAndValues []any) {
	if level < l.level || l.level == LogLevelNone {
		return
	}

	var b strings.Builder
	b.Grow(len(msg) + 10 + len(keysAndValues)*24)
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteString(" ")
		b.WriteString(sanitizeLogValue(keysAndValues[i]))
		b.WriteString("=")
		if i+1 < len(keysAndValues) {
			b.WriteString(sanitizeLogValue(keysAndValues[i+1]))
		} else {
			b.WriteString("<MISSING>")
		}
	}

	log.Println(b.String())
}

// sanitizeLogValue renders val on a single line: newlines, tabs and form
// feeds become spaces, other control characters and ESC become '.', and
// zero-width or bidi-override runes are dropped. Values are truncated at
// MaxLogValueLength.
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + "...[TRUNCATED]"
	}

	var b strings.Builder
	b.Grow(len(str))
	for len(str) > 0 {
		r, size := utf8.DecodeRuneInString(str)
		str = str[size:]

		switch {
		case r == utf8.RuneError && size <= 1:
			b.WriteByte('.')
		case r == '\n' || r == '\r' || r == '\t' || r == '\f':
			b.WriteByte(' ')
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0xFEFF:
			// zero-width, skipped
		case r == 0x202E:
			b.WriteByte(' ')
		case r < 0x80 && unicode.IsControl(r):
			b.WriteByte('.')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NoOpLogger discards all messages. It is the client's default logger.
type NoOpLogger struct{}

// Debug discards the message
func (NoOpLogger) Debug(context.Context, string, ...any) {}

// Info discards the message
func (NoOpLogger) Info(context.Context, string, ...any) {}

// Warn discards the message
func (NoOpLogger) Warn(context.Context, string, ...any) {}

// Error discards the message
func (NoOpLogger) Error(context.Context, string, ...any) {}
